package db

import (
	"fmt"

	"gorm.io/gorm"
)

// EnsureIndexes создает индексы и ограничения, которые не выражаются тегами gorm.
// Только для PostgreSQL, в SQLite достаточно автомиграции
func EnsureIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}

	statements := []struct {
		name string
		sql  string
	}{
		{
			// канонический порядок пары
			name: "chk_match_pair_order",
			sql: `
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_match_pair_order') THEN
					ALTER TABLE match_relationships ADD CONSTRAINT chk_match_pair_order CHECK (user_a_id < user_b_id);
				END IF;
			END
			$$;`,
		},
		{
			// поиск просроченных переговоров фоновым сборщиком
			name: "idx_unlike_overdue",
			sql: `
			CREATE INDEX IF NOT EXISTS idx_unlike_overdue
				ON unlike_negotiations (auto_unmatch_at)
				WHERE pending AND auto_unmatch_at IS NOT NULL;`,
		},
		{
			name: "idx_like_edges_receiver_active",
			sql: `
			CREATE INDEX IF NOT EXISTS idx_like_edges_receiver_active
				ON like_edges (receiver_id, sender_id)
				WHERE active;`,
		},
	}

	for _, st := range statements {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}
