package cart

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func encodeLines(lines []Line) (string, error) {
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode cart snapshot: %w", err)
	}
	return string(raw), nil
}

func decodeLines(payload string) ([]Line, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}
	var lines []Line
	if err := json.Unmarshal([]byte(payload), &lines); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return lines, nil
}

// sanitizeLines drops lines that lost their product reference or hold a non-positive
// quantity, backfills the placeholder shop and assigns ids to lines stored without one.
func sanitizeLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ProductID() == "" || line.Quantity <= 0 {
			continue
		}
		if line.Quantity > MaxLineQuantity {
			line.Quantity = MaxLineQuantity
		}
		backfillShop(line.Product)
		if strings.TrimSpace(line.ID) == "" {
			line.ID = uuid.NewString()
		}
		out = append(out, line)
	}
	return out
}
