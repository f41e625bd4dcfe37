package run

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/michezo/core/plan"
)

func TestCompile(t *testing.T) {
	gameBlock := plan.Block{
		ID:              "blk1",
		Position:        1,
		Type:            plan.BlockTypeGame,
		DurationMinutes: 10,
		Notes:           "play outside if sunny",
		GameSnapshot: &plan.GameSnapshot{
			Title:     "Capture The Flag",
			Materials: []string{"2 flags", "cones"},
			Instructions: []plan.GameInstruction{
				{Title: "Explain the rules", DurationMinutes: 3},
				{Title: "Split into teams"},
				{Title: "Play", Description: "first to 3 captures wins", DurationMinutes: 20},
			},
		},
	}
	pauseBlock := plan.Block{ID: "blk2", Position: 2, Type: plan.BlockTypePause, DurationMinutes: 15}
	customBlock := plan.Block{ID: "blk3", Position: 3, Type: plan.BlockTypeCustom, Title: "Campfire", Notes: "bring marshmallows"}
	gameNoInstructions := plan.Block{
		ID:       "blk4",
		Position: 4,
		Type:     plan.BlockTypeGame,
		GameSnapshot: &plan.GameSnapshot{
			Title:            "Tag",
			ShortDescription: "classic game of tag",
			Materials:        []string{"nothing"},
		},
	}

	t.Run("no blocks", func(t *testing.T) {
		if _, err := Compile(nil); err != ErrNoPlayableContent {
			t.Errorf("Compile() error = %v, wantErr %v", err, ErrNoPlayableContent)
		}
	})

	t.Run("game block expands per instruction", func(t *testing.T) {
		steps, err := Compile([]plan.Block{gameBlock})
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		if len(steps) != 3 {
			t.Fatalf("len(steps) = %d, want 3", len(steps))
		}

		assert.Equal(t, "blk1-0", steps[0].ID)
		assert.Equal(t, "blk1-1", steps[1].ID)
		assert.Equal(t, "blk1-2", steps[2].ID)
		for i, s := range steps {
			assert.Equal(t, i, s.Index)
			assert.Equal(t, "blk1", s.BlockID)
			assert.Equal(t, "Capture The Flag", s.GameTitle)
		}

		// instruction duration wins; otherwise fall back to the block's
		assert.Equal(t, 3, steps[0].DurationMinutes)
		assert.Equal(t, 10, steps[1].DurationMinutes)
		assert.Equal(t, 20, steps[2].DurationMinutes)

		// shared block context only rides on the first step
		assert.Equal(t, []string{"2 flags", "cones"}, steps[0].Materials)
		assert.Equal(t, "play outside if sunny", steps[0].Note)
		for _, s := range steps[1:] {
			assert.Empty(t, s.Materials)
			assert.Empty(t, s.Note)
		}
	})

	t.Run("pause block collapses to one step with default duration floor", func(t *testing.T) {
		steps, err := Compile([]plan.Block{pauseBlock, {ID: "blk9", Position: 9, Type: plan.BlockTypePause}})
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		if len(steps) != 2 {
			t.Fatalf("len(steps) = %d, want 2", len(steps))
		}
		assert.Equal(t, "Pause", steps[0].Tag)
		assert.Equal(t, "Pause", steps[0].Title)
		assert.Equal(t, 15, steps[0].DurationMinutes)
		assert.NotEmpty(t, steps[0].Description)

		// no duration anywhere: floor applies, never zero
		assert.Equal(t, defaultStepMinutes, steps[1].DurationMinutes)
	})

	t.Run("custom block uses its title and notes", func(t *testing.T) {
		steps, err := Compile([]plan.Block{customBlock})
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		assert.Equal(t, "Campfire", steps[0].Tag)
		assert.Equal(t, "bring marshmallows", steps[0].Description)
		assert.Equal(t, "bring marshmallows", steps[0].Note)
	})

	t.Run("game block without instructions collapses to one step", func(t *testing.T) {
		steps, err := Compile([]plan.Block{gameNoInstructions})
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		if len(steps) != 1 {
			t.Fatalf("len(steps) = %d, want 1", len(steps))
		}
		assert.Equal(t, "classic game of tag", steps[0].Description)
		assert.Equal(t, "Tag", steps[0].GameTitle)
		assert.Equal(t, []string{"nothing"}, steps[0].Materials)
	})

	t.Run("mixed plan keeps block order and contiguous indexes", func(t *testing.T) {
		steps, err := Compile([]plan.Block{gameBlock, pauseBlock, customBlock, gameNoInstructions})
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		if len(steps) != 6 {
			t.Fatalf("len(steps) = %d, want 6", len(steps))
		}
		for i, s := range steps {
			if s.Index != i {
				t.Errorf("steps[%d].Index = %d, want %d", i, s.Index, i)
			}
		}
		wantBlocks := []string{"blk1", "blk1", "blk1", "blk2", "blk3", "blk4"}
		for i, s := range steps {
			assert.Equal(t, wantBlocks[i], s.BlockID)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		blocks := []plan.Block{gameBlock, pauseBlock}
		first, err := Compile(blocks)
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		second, err := Compile(blocks)
		if err != nil {
			t.Fatalf("Compile(): %v", err)
		}
		assert.Equal(t, first, second)
	})
}

func TestTotalDuration(t *testing.T) {
	steps := []Step{{DurationMinutes: 3}, {DurationMinutes: 10}, {DurationMinutes: 20}}
	if got := TotalDuration(steps); got != 33 {
		t.Errorf("TotalDuration() = %d, want 33", got)
	}
	if got := TotalDuration(nil); got != 0 {
		t.Errorf("TotalDuration(nil) = %d, want 0", got)
	}
}
