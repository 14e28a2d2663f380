package routes

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/klmilton/tfl-bus-prediction/pkg/tfl"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
	"github.com/liip/sheriff"

	iso8601 "github.com/senseyeio/duration"
)

type stopsHandler struct {
	client *tfl.Client
}

func StopsRouter(router fiber.Router, client *tfl.Client) {
	handler := stopsHandler{client: client}

	router.Get("/search", handler.searchStops)
	router.Get("/:identifier", handler.getStop)
	router.Get("/:identifier/arrivals", handler.getStopArrivals)
}

func (h stopsHandler) searchStops(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return sendError(c, fiber.StatusBadRequest, "Parameter query must be provided")
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(tfl.DefaultMaxResults)))
	if err != nil || limit <= 0 {
		return sendError(c, fiber.StatusBadRequest, "Parameter limit should be a positive integer")
	}

	matches, err := h.client.SearchStopPoints(c.UserContext(), tfl.Query{
		Text:       query,
		Modes:      util.SplitList(c.Query("modes")),
		MaxResults: limit,
	})
	if err != nil {
		return sendUpstreamError(c, err)
	}

	if len(matches) == 0 {
		return sendError(c, fiber.StatusNotFound, "Could not find any Stop Points matching query")
	}

	return c.JSON(matches)
}

func (h stopsHandler) getStop(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	stopPoint, err := h.client.GetStopPoint(c.UserContext(), identifier)
	if err != nil {
		return sendUpstreamError(c, err)
	}

	children := tfl.ValidateChildren(identifier, stopPoint.Children)

	return c.JSON(fiber.Map{
		"id":         stopPoint.Identifier(),
		"commonName": stopPoint.CommonName,
		"stopType":   stopPoint.StopType,
		"modes":      stopPoint.Modes,
		"lat":        stopPoint.Latitude,
		"lon":        stopPoint.Longitude,
		"lines":      stopPoint.Lines,
		"children":   children.IDs,
		"malformed":  children.Malformed,
	})
}

func (h stopsHandler) getStopArrivals(c *fiber.Ctx) error {
	identifier := c.Params("identifier")

	detail, err := strconv.ParseBool(c.Query("detail", "false"))
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "Parameter detail should be a boolean")
	}

	var window time.Duration
	if withinString := c.Query("within"); withinString != "" {
		within, err := iso8601.ParseISO8601(withinString)
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, "Parameter within should be an ISO8601 duration")
		}

		now := time.Now()
		window = within.Shift(now).Sub(now)
	}

	filter, err := tfl.CompileArrivalFilter(c.Query("filter"))
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	aggregation, err := h.client.ArrivalsForHubOrStop(c.UserContext(), identifier)
	if err != nil {
		return sendUpstreamError(c, err)
	}

	arrivals := aggregation.Arrivals
	if window > 0 {
		arrivals = tfl.Within(arrivals, window)
	}
	arrivals, err = tfl.FilterArrivals(arrivals, filter)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, err.Error())
	}

	groups := []string{"basic"}
	if detail {
		groups = append(groups, "detailed")
	}

	arrivalsReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, arrivals)
	if err != nil {
		return sendError(c, fiber.StatusInternalServerError, "Sherrif could not reduce arrivals")
	}

	failedChildren := []string{}
	for _, outcome := range aggregation.FailedChildren() {
		failedChildren = append(failedChildren, outcome.StopID)
	}

	return c.JSON(fiber.Map{
		"stop":           identifier,
		"children":       aggregation.Children.IDs,
		"failedChildren": failedChildren,
		"fallback":       aggregation.Fallback,
		"arrivals":       arrivalsReduced,
	})
}
