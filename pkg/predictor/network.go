package predictor

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-8
)

type layer struct {
	weights *mat.Dense
	bias    *mat.Dense
}

// network is a fully connected regressor with ReLU between the hidden layers and a linear output
type network struct {
	layers []*layer
}

// newNetwork draws weights and biases uniformly from +-1/sqrt(fan in)
func newNetwork(random *rand.Rand, sizes ...int) *network {
	n := &network{}

	for i := 0; i+1 < len(sizes); i++ {
		in, out := sizes[i], sizes[i+1]
		bound := 1 / math.Sqrt(float64(in))

		weights := mat.NewDense(in, out, nil)
		weights.Apply(func(_, _ int, _ float64) float64 {
			return (random.Float64()*2 - 1) * bound
		}, weights)

		bias := mat.NewDense(1, out, nil)
		bias.Apply(func(_, _ int, _ float64) float64 {
			return (random.Float64()*2 - 1) * bound
		}, bias)

		n.layers = append(n.layers, &layer{weights: weights, bias: bias})
	}

	return n
}

// forward returns the pre-activation and activation of every layer. activations[0] is the input.
func (n *network) forward(x *mat.Dense) ([]*mat.Dense, []*mat.Dense) {
	activations := []*mat.Dense{x}
	preActivations := []*mat.Dense{}

	input := x
	for i, l := range n.layers {
		rows, _ := input.Dims()
		_, out := l.weights.Dims()

		z := mat.NewDense(rows, out, nil)
		z.Mul(input, l.weights)
		z.Apply(func(_, j int, v float64) float64 {
			return v + l.bias.At(0, j)
		}, z)
		preActivations = append(preActivations, z)

		if i == len(n.layers)-1 {
			activations = append(activations, z)
			break
		}

		a := mat.NewDense(rows, out, nil)
		a.Apply(func(_, _ int, v float64) float64 {
			return math.Max(0, v)
		}, z)
		activations = append(activations, a)
		input = a
	}

	return preActivations, activations
}

func (n *network) predict(x *mat.Dense) *mat.Dense {
	_, activations := n.forward(x)
	return activations[len(activations)-1]
}

// gradients runs one full batch through the network and returns the mean squared error along with
// the gradient of every weight and bias, in layer order.
func (n *network) gradients(x *mat.Dense, y *mat.Dense) (float64, []*layer) {
	preActivations, activations := n.forward(x)
	output := activations[len(activations)-1]
	rows, _ := output.Dims()

	delta := mat.NewDense(rows, 1, nil)
	delta.Sub(output, y)
	loss := 0.0
	for i := 0; i < rows; i++ {
		loss += delta.At(i, 0) * delta.At(i, 0)
	}
	loss /= float64(rows)
	delta.Scale(2/float64(rows), delta)

	grads := make([]*layer, len(n.layers))
	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		in, out := l.weights.Dims()

		weightGrad := mat.NewDense(in, out, nil)
		weightGrad.Mul(activations[i].T(), delta)

		biasGrad := mat.NewDense(1, out, nil)
		for j := 0; j < out; j++ {
			biasGrad.Set(0, j, mat.Sum(delta.ColView(j)))
		}

		grads[i] = &layer{weights: weightGrad, bias: biasGrad}

		if i == 0 {
			break
		}

		previous := mat.NewDense(rows, in, nil)
		previous.Mul(delta, l.weights.T())
		mask := preActivations[i-1]
		previous.Apply(func(r, c int, v float64) float64 {
			if mask.At(r, c) <= 0 {
				return 0
			}
			return v
		}, previous)
		delta = previous
	}

	return loss, grads
}

// adam keeps the first and second moment estimates for every parameter of a network
type adam struct {
	learningRate float64
	step         int
	first        []*layer
	second       []*layer
}

func newAdam(n *network, learningRate float64) *adam {
	optimiser := &adam{learningRate: learningRate}

	for _, l := range n.layers {
		optimiser.first = append(optimiser.first, zeroLike(l))
		optimiser.second = append(optimiser.second, zeroLike(l))
	}

	return optimiser
}

func zeroLike(l *layer) *layer {
	wr, wc := l.weights.Dims()
	br, bc := l.bias.Dims()
	return &layer{weights: mat.NewDense(wr, wc, nil), bias: mat.NewDense(br, bc, nil)}
}

func (a *adam) update(n *network, grads []*layer) {
	a.step++
	firstCorrection := 1 - math.Pow(adamBeta1, float64(a.step))
	secondCorrection := 1 - math.Pow(adamBeta2, float64(a.step))

	for i, l := range n.layers {
		a.apply(l.weights, grads[i].weights, a.first[i].weights, a.second[i].weights, firstCorrection, secondCorrection)
		a.apply(l.bias, grads[i].bias, a.first[i].bias, a.second[i].bias, firstCorrection, secondCorrection)
	}
}

func (a *adam) apply(param, grad, first, second *mat.Dense, firstCorrection, secondCorrection float64) {
	rows, columns := param.Dims()

	for r := 0; r < rows; r++ {
		for c := 0; c < columns; c++ {
			g := grad.At(r, c)

			m := adamBeta1*first.At(r, c) + (1-adamBeta1)*g
			v := adamBeta2*second.At(r, c) + (1-adamBeta2)*g*g
			first.Set(r, c, m)
			second.Set(r, c, v)

			step := a.learningRate * (m / firstCorrection) / (math.Sqrt(v/secondCorrection) + adamEpsilon)
			param.Set(r, c, param.At(r, c)-step)
		}
	}
}
