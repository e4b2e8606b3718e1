package models

// All перечисляет модели для автомиграции
func All() []interface{} {
	return []interface{}{
		&User{}, &Friend{}, &Message{}, &Notification{},
		&LikeEdge{}, &MatchRelationship{}, &UnlikeNegotiation{},
	}
}
