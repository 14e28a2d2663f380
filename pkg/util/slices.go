package util

// RemoveDuplicates keeps the first occurrence of every item, dropping anything in ignoreList
func RemoveDuplicates[T comparable](items []T, ignoreList []T) []T {
	presentItems := make(map[T]bool)
	list := []T{}

	for _, ignoreItem := range ignoreList {
		presentItems[ignoreItem] = true
	}

	for _, item := range items {
		if !presentItems[item] {
			presentItems[item] = true
			list = append(list, item)
		}
	}

	return list
}

// InPlaceFilter keeps the elements p returns true for, reusing the backing array
func InPlaceFilter[T any](s *[]T, p func(T) bool) {
	kept := 0
	for _, element := range *s {
		if p(element) {
			(*s)[kept] = element
			kept++
		}
	}
	*s = (*s)[:kept]
}
