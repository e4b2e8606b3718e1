package matching

import "fmt"

// Pair - каноническая неупорядоченная пара пользователей, A < B
type Pair struct {
	A int64
	B int64
}

func NewPair(x, y int64) Pair {
	if x > y {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Key - ключ блокировки пары
func (p Pair) Key() string {
	return fmt.Sprintf("match:pair:%d:%d", p.A, p.B)
}

// Other возвращает второго участника пары
func (p Pair) Other(id int64) int64 {
	if id == p.A {
		return p.B
	}
	return p.A
}

func validatePair(actorID, targetID int64) error {
	if actorID <= 0 || targetID <= 0 {
		return ErrInvalidRequest.WithDetail("reason", "invalid user id")
	}
	if actorID == targetID {
		return ErrInvalidRequest.WithDetail("reason", "cannot target yourself")
	}
	return nil
}
