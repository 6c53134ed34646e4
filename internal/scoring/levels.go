package scoring

import (
	"fmt"
	"strings"
)

// Level is one maturity band with an inclusive score range.
type Level struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Name string  `json:"name"`
}

// DefaultLabels are the maturity level names in ascending order.
var DefaultLabels = []string{"Ad Hoc", "Reactive", "Defined", "Managed", "Optimized"}

var bandRanges = [BucketCount][2]float64{
	{1.0, 1.4},
	{1.5, 2.4},
	{2.5, 3.4},
	{3.5, 4.4},
	{4.5, 5.0},
}

// Ladder is the ordered set of maturity bands.
type Ladder []Level

// DefaultLadder uses DefaultLabels.
var DefaultLadder = mustLadder(DefaultLabels)

// NewLadder builds the five bands with custom labels.
func NewLadder(labels []string) (Ladder, error) {
	if len(labels) != len(bandRanges) {
		return nil, fmt.Errorf("maturity labels: expected %d labels, got %d", len(bandRanges), len(labels))
	}
	ladder := make(Ladder, 0, len(bandRanges))
	for i, r := range bandRanges {
		name := strings.TrimSpace(labels[i])
		if name == "" {
			return nil, fmt.Errorf("maturity labels: label %d is empty", i+1)
		}
		ladder = append(ladder, Level{Min: r[0], Max: r[1], Name: name})
	}
	return ladder, nil
}

// For returns the first band containing the overall score after rounding it
// to one decimal. Falls back to the lowest band.
func (l Ladder) For(overall float64) Level {
	if len(l) == 0 {
		l = DefaultLadder
	}
	score := Round1(overall)
	for _, lvl := range l {
		if score >= lvl.Min && score <= lvl.Max {
			return lvl
		}
	}
	return l[0]
}

// LevelFor resolves a level against DefaultLadder.
func LevelFor(overall float64) Level {
	return DefaultLadder.For(overall)
}

func mustLadder(labels []string) Ladder {
	l, err := NewLadder(labels)
	if err != nil {
		panic(err)
	}
	return l
}
