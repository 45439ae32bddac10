package attempts

import (
	"math"

	"github.com/moneymoves/backend/internal/models"
)

func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}

// buildDistribution expands sparse position counts into the full option ×
// position grid. Zero positions are reported, never omitted: the comparison
// view renders a bar for every rank.
func buildDistribution(options []models.Option, counts map[positionKey]int, total int) []models.PositionBreakdown {
	n := len(options)
	breakdown := make([]models.PositionBreakdown, 0, n)
	for _, opt := range options {
		pb := models.PositionBreakdown{
			OptionID:  opt.ID,
			Label:     opt.Label,
			Positions: make([]models.PositionCount, 0, n),
		}
		for pos := 1; pos <= n; pos++ {
			c := counts[positionKey{OptionID: opt.ID, Position: pos}]
			pb.Positions = append(pb.Positions, models.PositionCount{
				Position: pos,
				Count:    c,
				Percent:  percent(c, total),
			})
		}
		breakdown = append(breakdown, pb)
	}
	return breakdown
}
