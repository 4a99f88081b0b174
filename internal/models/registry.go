package models

// All returns every model owned by the messaging core, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&MessageGroup{},
		&GroupMembership{},
		&DirectMessage{},
		&GroupMessage{},
		&Reaction{},
		&Notification{},
		&ConversationRequest{},
		&ActivityLog{},
	}
}
