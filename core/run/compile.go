package run

import (
	"errors"
	"fmt"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/plan"
)

var ErrNoPlayableContent = errors.New("plan has no playable content")

// defaultStepMinutes is the floor applied when neither the instruction nor
// its block declares a duration; a zero-length step would make the run
// advance at infinite speed.
const defaultStepMinutes = 5

var blockTypeLabels = map[string]string{
	plan.BlockTypeGame:        "Game",
	plan.BlockTypePause:       "Pause",
	plan.BlockTypePreparation: "Preparation",
	plan.BlockTypeCustom:      "Activity",
}

var blockTypeDescriptions = map[string]string{
	plan.BlockTypePause:       "Take a break and continue when everyone is ready.",
	plan.BlockTypePreparation: "Get everything ready for the next activity.",
}

// Compile transforms an ordered block list into the ordered step list of a
// run. It is pure and deterministic: the same block list always yields the
// same steps. A game block with instructions expands into one step per
// instruction; every other block collapses into exactly one step.
func Compile(blocks []plan.Block) ([]Step, error) {
	var steps []Step
	idx := 0

	for _, blk := range blocks {
		tag := blockTag(blk)

		if blk.IsGameWithInstructions() {
			snap := blk.GameSnapshot
			for i, inst := range snap.Instructions {
				step := Step{
					ID:              fmt.Sprintf("%s-%d", blk.ID, i),
					Index:           idx,
					BlockID:         blk.ID,
					BlockType:       blk.Type,
					Tag:             tag,
					Title:           inst.Title,
					Description:     inst.Description,
					DurationMinutes: stepDuration(inst.DurationMinutes, blk.DurationMinutes),
					GameTitle:       snap.Title,
				}
				if step.Title == "" {
					step.Title = tag
				}
				// shared block context goes on the first step only
				if i == 0 {
					step.Materials = snap.Materials
					step.Note = blk.Notes
				}
				steps = append(steps, step)
				idx++
			}
			continue
		}

		step := Step{
			ID:              fmt.Sprintf("%s-%d", blk.ID, 0),
			Index:           idx,
			BlockID:         blk.ID,
			BlockType:       blk.Type,
			Tag:             tag,
			Title:           tag,
			Description:     blockDescription(blk),
			DurationMinutes: stepDuration(0, blk.DurationMinutes),
			Note:            blk.Notes,
		}
		if blk.GameSnapshot != nil {
			step.GameTitle = blk.GameSnapshot.Title
			step.Materials = blk.GameSnapshot.Materials
			if step.Description == "" {
				step.Description = blk.GameSnapshot.ShortDescription
			}
		}
		steps = append(steps, step)
		idx++
	}

	if len(steps) == 0 {
		return nil, ErrNoPlayableContent
	}
	return steps, nil
}

func blockTag(blk plan.Block) string {
	if blk.Title != "" {
		return blk.Title
	}
	if label, ok := blockTypeLabels[blk.Type]; ok {
		return label
	}
	return blockTypeLabels[plan.BlockTypeCustom]
}

func blockDescription(blk plan.Block) string {
	if blk.Notes != "" {
		return blk.Notes
	}
	return blockTypeDescriptions[blk.Type]
}

func stepDuration(instructionMinutes, blockMinutes int) int {
	if instructionMinutes > 0 {
		return instructionMinutes
	}
	if blockMinutes > 0 {
		return blockMinutes
	}
	if d := configuredDefaultMinutes(); d > 0 {
		return d
	}
	return defaultStepMinutes
}

func configuredDefaultMinutes() int {
	if core.Conf == nil {
		return 0
	}
	return core.Conf.Play.DefaultStepMinutes
}

// TotalDuration sums step durations; used when a plan version declares no total.
func TotalDuration(steps []Step) int {
	var total int
	for _, s := range steps {
		total += s.DurationMinutes
	}
	return total
}
