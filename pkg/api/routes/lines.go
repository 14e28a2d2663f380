package routes

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/klmilton/tfl-bus-prediction/pkg/linestatus"
	"github.com/klmilton/tfl-bus-prediction/pkg/util"
)

type lineStatusResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ModeName string   `json:"modeName"`
	Summary  string   `json:"summary"`
	Reasons  []string `json:"reasons"`
}

func LinesRouter(router fiber.Router, board *linestatus.Board) {
	router.Get("/:modes/status", func(c *fiber.Ctx) error {
		modes := util.SplitList(c.Params("modes"))
		if len(modes) == 0 {
			return sendError(c, fiber.StatusBadRequest, "At least one mode must be provided")
		}

		detail, err := strconv.ParseBool(c.Query("detail", "false"))
		if err != nil {
			return sendError(c, fiber.StatusBadRequest, "Parameter detail should be a boolean")
		}

		lines, err := board.Statuses(c.UserContext(), modes, detail)
		if err != nil {
			return sendUpstreamError(c, err)
		}

		response := []lineStatusResponse{}
		for _, line := range lines {
			reasons := []string{}
			for _, status := range line.LineStatuses {
				if status.Reason != "" {
					reasons = append(reasons, status.Reason)
				}
			}

			response = append(response, lineStatusResponse{
				ID:       line.ID,
				Name:     line.Name,
				ModeName: line.ModeName,
				Summary:  line.StatusSummary(),
				Reasons:  reasons,
			})
		}

		return c.JSON(response)
	})
}
