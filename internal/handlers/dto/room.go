package dto

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	Topic       string `json:"topic"`
	MaxCapacity int    `json:"maxCapacity" binding:"omitempty,gt=0"`
}

type AssignMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}
