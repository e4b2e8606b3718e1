package matching

import (
	"context"
	"time"

	"socialmatch/db"
	"socialmatch/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchRegistry хранит одну запись на каноническую пару и ее статус
type MatchRegistry struct {
	orm *gorm.DB
}

func NewMatchRegistry(orm *gorm.DB) *MatchRegistry {
	return &MatchRegistry{orm: orm}
}

// Get возвращает запись пары или nil, если пара никогда не была в мэтче
func (r *MatchRegistry) Get(ctx context.Context, pair Pair) (*models.MatchRelationship, error) {
	var m models.MatchRelationship
	err := db.Conn(ctx, r.orm).
		Where("user_a_id = ? AND user_b_id = ?", pair.A, pair.B).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "match registry: get")
	}
	return &m, nil
}

func (r *MatchRegistry) GetByID(ctx context.Context, id string) (*models.MatchRelationship, error) {
	var m models.MatchRelationship
	err := db.Conn(ctx, r.orm).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "match registry: get by id")
	}
	return &m, nil
}

// Activate переводит пару в active. transitioned=true ровно у одного вызова на каждое
// формирование мэтча: вставка с ON CONFLICT DO NOTHING, затем условный UPDATE по status <> active
func (r *MatchRegistry) Activate(ctx context.Context, pair Pair, now time.Time) (*models.MatchRelationship, bool, error) {
	conn := db.Conn(ctx, r.orm)

	fresh := models.MatchRelationship{
		ID:        uuid.NewString(),
		UserAID:   pair.A,
		UserBID:   pair.B,
		Status:    models.MatchActive,
		MatchedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
		DoNothing: true,
	}).Create(&fresh)
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "match registry: insert")
	}
	transitioned := res.RowsAffected == 1

	if !transitioned {
		res = conn.Model(&models.MatchRelationship{}).
			Where("user_a_id = ? AND user_b_id = ? AND status <> ?", pair.A, pair.B, models.MatchActive).
			UpdateColumns(map[string]interface{}{
				"status":                models.MatchActive,
				"matched_at":            now,
				"unmatched_at":          nil,
				"rematch_blocked_until": nil,
				"updated_at":            now,
			})
		if res.Error != nil {
			return nil, false, errors.Wrap(res.Error, "match registry: reactivate")
		}
		transitioned = res.RowsAffected == 1
	}

	m, err := r.Get(ctx, pair)
	if err != nil {
		return nil, false, err
	}
	if m == nil {
		return nil, false, errors.New("match registry: record vanished after activate")
	}
	return m, transitioned, nil
}

// Dissolve переводит активный мэтч в unmatched. false - мэтч уже не активен (его закрыл другой вызов)
func (r *MatchRegistry) Dissolve(ctx context.Context, matchID string, now, blockedUntil time.Time) (bool, error) {
	res := db.Conn(ctx, r.orm).Model(&models.MatchRelationship{}).
		Where("id = ? AND status = ?", matchID, models.MatchActive).
		UpdateColumns(map[string]interface{}{
			"status":                models.MatchUnmatched,
			"unmatched_at":          now,
			"rematch_blocked_until": blockedUntil,
			"updated_at":            now,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "match registry: dissolve")
	}
	return res.RowsAffected == 1, nil
}
