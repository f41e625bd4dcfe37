package main

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core/plan"
)

// seedDemo loads a small self-consistent data set: a published plan with a
// game block, a draft-only plan, an open session and a locked keypad with two
// variants. Re-running it is harmless.
func (cli *commandLine) seedDemo() error {
	snapshot, err := json.Marshal(plan.GameSnapshot{
		Title:            "Capture The Flag",
		ShortDescription: "Two teams, two flags, one field.",
		Materials:        []string{"2 flags", "cones", "team bands"},
		Instructions: []plan.GameInstruction{
			{Title: "Explain the rules", Description: "Walk through the field boundaries and the jail rule.", DurationMinutes: 5},
			{Title: "Split into teams", DurationMinutes: 5},
			{Title: "Play", Description: "First team to 3 captures wins.", DurationMinutes: 30},
		},
	})
	if err != nil {
		return errors.Wrap(err, "marshalling game snapshot")
	}

	tx, err := cli.sqlxDB.Beginx()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		query string
		args  []interface{}
	}{
		{
			`INSERT INTO plan (id, name, current_version_id) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-plan", "Demo Scout Afternoon", "demo-plan-v1"},
		},
		{
			`INSERT INTO plan_version (id, plan_id, number) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-plan-v1", "demo-plan", 1},
		},
		{
			`INSERT INTO block (id, version_id, position, block_type, duration_minutes, notes, game_snapshot)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-blk1", "demo-plan-v1", 1, plan.BlockTypeGame, 40, "Play outside if the weather allows.", snapshot},
		},
		{
			`INSERT INTO block (id, version_id, position, block_type, duration_minutes)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-blk2", "demo-plan-v1", 2, plan.BlockTypePause, 15},
		},
		{
			`INSERT INTO plan (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-draft-plan", "Demo Unpublished Evening"},
		},
		{
			`INSERT INTO block (id, plan_id, position, block_type, title, duration_minutes)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-blk3", "demo-draft-plan", 1, plan.BlockTypeCustom, "Campfire", 30},
		},
		{
			`INSERT INTO session (id, game_id, name, host_id) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-session", "demo-game", "Demo Friday Night", "demo-host"},
		},
		{
			`INSERT INTO artifact (id, game_id, kind, title, correct_code, code_length, max_attempts, lock_on_fail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-keypad", "demo-game", "keypad", "Treasure Chest", "4912", 4, 3, true},
		},
		{
			`INSERT INTO artifact_variant (id, artifact_id, title, visibility)
			 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-var1", "demo-keypad", "Bonus Round", "public"},
		},
		{
			`INSERT INTO artifact_variant (id, artifact_id, title, visibility)
			 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			[]interface{}{"demo-var2", "demo-keypad", "Host Notes", "role_restricted"},
		},
	}

	for _, stmt := range stmts {
		if _, err = tx.Exec(stmt.query, stmt.args...); err != nil {
			return errors.Wrap(err, "seeding demo data")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "committing demo data")
	}

	logger.Println("demo data loaded")
	return nil
}
