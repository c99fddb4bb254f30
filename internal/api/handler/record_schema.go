package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// sendRecordRequest is the body of POST /send_record. Pointers let the
// validator tell a missing field from a zero value; an empty name is allowed.
type sendRecordRequest struct {
	Name     *string `json:"name"      validate:"required"`
	Age      *int    `json:"age"       validate:"required"`
	Cookie   *string `json:"cookie"    validate:"required"`
	BannerID *int    `json:"banner_id" validate:"required"`
	MinAge   *int    `json:"min_age"   validate:"omitempty,gte=0"`
	MaxAge   *int    `json:"max_age"   validate:"omitempty,gte=0"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type bulkResponse struct {
	Sent int `json:"sent"`
}
