package services

import (
	"context"
	"fmt"
	"sort"

	"lms/apperr"
	"lms/logger"
	"lms/models"

	"gorm.io/gorm"
)

// Scope names a set of siblings sharing one position column.
type Scope struct {
	model    func() interface{}
	entity   string
	parent   string
	parentID uint
	column   string
}

func UnitScope(courseID uint) Scope {
	return Scope{
		model:    func() interface{} { return &models.Unit{} },
		entity:   "Unit",
		parent:   "course_id",
		parentID: courseID,
		column:   "unit_order",
	}
}

func LessonScope(unitID uint) Scope {
	return Scope{
		model:    func() interface{} { return &models.Lesson{} },
		entity:   "Lesson",
		parent:   "unit_id",
		parentID: unitID,
		column:   "lesson_order",
	}
}

func QuestionScope(quizID uint) Scope {
	return Scope{
		model:    func() interface{} { return &models.Question{} },
		entity:   "Question",
		parent:   "quiz_id",
		parentID: quizID,
		column:   "question_order",
	}
}

type position struct {
	ID       uint
	Position int
}

// OrderingService keeps sibling positions unique and dense inside a scope.
// Methods accept an optional tx; with a nil tx multi-row writes get their own transaction.
type OrderingService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderingService(db *gorm.DB, baseLog *logger.Logger) *OrderingService {
	return &OrderingService{db: db, log: baseLog.With("service", "OrderingService")}
}

func (s *OrderingService) scoped(ctx context.Context, tx *gorm.DB, scope Scope) *gorm.DB {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Model(scope.model()).Where(scope.parent+" = ?", scope.parentID)
}

func (s *OrderingService) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *OrderingService) siblings(ctx context.Context, tx *gorm.DB, scope Scope) ([]position, error) {
	var rows []position
	err := s.scoped(ctx, tx, scope).
		Select("id, " + scope.column + " AS position").
		Order(scope.column + " asc, id asc").
		Scan(&rows).Error
	return rows, err
}

func (s *OrderingService) setPosition(ctx context.Context, tx *gorm.DB, scope Scope, id uint, pos int) error {
	return s.scoped(ctx, tx, scope).Where("id = ?", id).UpdateColumn(scope.column, pos).Error
}

// NextOrder returns max(order)+1 within the scope, 1 when the scope is empty.
func (s *OrderingService) NextOrder(ctx context.Context, tx *gorm.DB, scope Scope) (int, error) {
	var max int
	err := s.scoped(ctx, tx, scope).Select("COALESCE(MAX(" + scope.column + "), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// ValidateOrder fails with ErrDuplicateOrder when another sibling already holds order.
func (s *OrderingService) ValidateOrder(ctx context.Context, tx *gorm.DB, scope Scope, order int, excludeID uint) error {
	if order < 1 {
		return apperr.ErrInvalidPosition.WithHint("Order must be a positive integer.")
	}
	q := s.scoped(ctx, tx, scope).Where(scope.column+" = ?", order)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.ErrDuplicateOrder.WithHint(fmt.Sprintf("%s order %d is already taken.", scope.entity, order))
	}
	return nil
}

// ShiftOrders moves every sibling between oldOrder and newOrder one step toward oldOrder's
// side so that the excluded row can take newOrder.
func (s *OrderingService) ShiftOrders(ctx context.Context, tx *gorm.DB, scope Scope, oldOrder, newOrder int, excludeID uint) error {
	if oldOrder == newOrder {
		return nil
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		q := s.scoped(ctx, tx, scope).Where("id <> ?", excludeID)
		if newOrder < oldOrder {
			return q.Where(scope.column+" >= ? AND "+scope.column+" < ?", newOrder, oldOrder).
				UpdateColumn(scope.column, gorm.Expr(scope.column+" + ?", 1)).Error
		}
		return q.Where(scope.column+" > ? AND "+scope.column+" <= ?", oldOrder, newOrder).
			UpdateColumn(scope.column, gorm.Expr(scope.column+" - ?", 1)).Error
	})
}

// MoveToPosition places id at pos (1-based) and shifts the siblings in between.
func (s *OrderingService) MoveToPosition(ctx context.Context, tx *gorm.DB, scope Scope, id uint, pos int) error {
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		rows, err := s.compact(ctx, tx, scope)
		if err != nil {
			return err
		}
		current := 0
		for _, r := range rows {
			if r.ID == id {
				current = r.Position
				break
			}
		}
		if current == 0 {
			return apperr.NotFound(scope.entity)
		}
		if pos < 1 || pos > len(rows) {
			return apperr.ErrInvalidPosition.WithHint(fmt.Sprintf("Position must be between 1 and %d.", len(rows)))
		}
		if pos == current {
			return nil
		}
		if err := s.ShiftOrders(ctx, tx, scope, current, pos, id); err != nil {
			return err
		}
		return s.setPosition(ctx, tx, scope, id, pos)
	})
}

// Reorder puts every named id at its requested position and fills the remaining slots with
// the other siblings in their current order. Targets past the end clamp to the last free slot
// at or below them, so named rows keep their requested relative order.
func (s *OrderingService) Reorder(ctx context.Context, tx *gorm.DB, scope Scope, positions map[uint]int) error {
	if len(positions) == 0 {
		return apperr.Validation("No orders given.")
	}
	seen := make(map[int]uint, len(positions))
	for id, pos := range positions {
		if pos < 1 {
			return apperr.ErrInvalidPosition.WithHint("Order must be a positive integer.")
		}
		if other, ok := seen[pos]; ok {
			return apperr.ErrDuplicateOrder.WithDetails([]string{
				fmt.Sprintf("%s %d and %d both request order %d.", scope.entity, other, id, pos),
			})
		}
		seen[pos] = id
	}

	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		rows, err := s.siblings(ctx, tx, scope)
		if err != nil {
			return err
		}
		known := make(map[uint]bool, len(rows))
		for _, r := range rows {
			known[r.ID] = true
		}
		for id := range positions {
			if !known[id] {
				return apperr.NotFound(fmt.Sprintf("%s %d", scope.entity, id))
			}
		}

		plan := planPositions(rows, positions)
		for _, r := range rows {
			if r.Position == plan[r.ID] {
				continue
			}
			if err := s.setPosition(ctx, tx, scope, r.ID, plan[r.ID]); err != nil {
				return err
			}
		}
		return nil
	})
}

// planPositions maps every row to a slot in 1..len(rows). rows must be in current order and
// every key of positions must be one of rows.
func planPositions(rows []position, positions map[uint]int) map[uint]int {
	n := len(rows)
	named := make([]uint, 0, len(positions))
	for id := range positions {
		named = append(named, id)
	}
	sort.Slice(named, func(i, j int) bool { return positions[named[i]] > positions[named[j]] })

	slots := make([]uint, n+1)
	plan := make(map[uint]int, n)
	for _, id := range named {
		slot := positions[id]
		if slot > n {
			slot = n
		}
		for slot > 0 && slots[slot] != 0 {
			slot--
		}
		if slot == 0 {
			for slot = 1; slots[slot] != 0; slot++ {
			}
		}
		slots[slot] = id
		plan[id] = slot
	}

	next := 1
	for _, r := range rows {
		if _, ok := plan[r.ID]; ok {
			continue
		}
		for slots[next] != 0 {
			next++
		}
		slots[next] = r.ID
		plan[r.ID] = next
	}
	return plan
}

// ReorderIDs assigns positions 1..n in the order ids are given.
func (s *OrderingService) ReorderIDs(ctx context.Context, tx *gorm.DB, scope Scope, ids []uint) error {
	positions := make(map[uint]int, len(ids))
	for i, id := range ids {
		if _, ok := positions[id]; ok {
			return apperr.ErrDuplicateOrder.WithDetails([]string{fmt.Sprintf("%s %d is listed twice.", scope.entity, id)})
		}
		positions[id] = i + 1
	}
	return s.Reorder(ctx, tx, scope, positions)
}

// Compact renumbers the scope to 1..n keeping the current sequence.
func (s *OrderingService) Compact(ctx context.Context, tx *gorm.DB, scope Scope) error {
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		_, err := s.compact(ctx, tx, scope)
		return err
	})
}

func (s *OrderingService) compact(ctx context.Context, tx *gorm.DB, scope Scope) ([]position, error) {
	rows, err := s.siblings(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Position == i+1 {
			continue
		}
		if err := s.setPosition(ctx, tx, scope, rows[i].ID, i+1); err != nil {
			return nil, err
		}
		rows[i].Position = i + 1
	}
	return rows, nil
}

// Positions lists the scope's ids in order.
func (s *OrderingService) Positions(ctx context.Context, tx *gorm.DB, scope Scope) ([]uint, error) {
	rows, err := s.siblings(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}
