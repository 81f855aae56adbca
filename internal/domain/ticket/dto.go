package ticket

// CreateTicketRequest is the body of POST /ticket/create.
type CreateTicketRequest struct {
	Question string `json:"question" binding:"required"`
}

// CreateTicketResponse carries the id of the created ticket.
type CreateTicketResponse struct {
	ID string `json:"id"`
}

// StatusResponse is returned by GET /ticket/status.
type StatusResponse struct {
	ID     string       `json:"id"`
	Status TicketStatus `json:"status"`
}

// DataResponse is returned by GET /ticket/data.
type DataResponse struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Status    TicketStatus `json:"status"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	Answer    *string      `json:"answer"`
}
