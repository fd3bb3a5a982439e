package models

import (
	"strings"
	"time"
)

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
| Dipakai untuk query ke DB
*/
type Operator struct {
	ID          int64
	Name        string
	Email       string
	Password    string
	Permissions string
	IsBanned    string
	CreatedAt   time.Time
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/
type OperatorResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Permissions map[string]string `json:"permissions"`
}

type LoginResponse struct {
	Token    string           `json:"token"`
	Operator OperatorResponse `json:"operator"`
}

// ParsePermissions reads "SQM_ENTRY:CRU;OTHER:R" into resource -> levels.
func ParsePermissions(raw string) map[string]string {
	perms := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		resource, levels, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok || resource == "" {
			continue
		}
		perms[strings.ToUpper(strings.TrimSpace(resource))] = strings.ToUpper(strings.TrimSpace(levels))
	}
	return perms
}

/*
|--------------------------------------------------------------------------
| MAPPER
|--------------------------------------------------------------------------
| Convert Operator (DB) -> OperatorResponse (API)
*/
func ToOperatorResponse(o Operator) OperatorResponse {
	return OperatorResponse{
		ID:          o.ID,
		Name:        o.Name,
		Email:       o.Email,
		Permissions: ParsePermissions(o.Permissions),
	}
}
