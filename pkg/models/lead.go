package models

// Lead represents a sales contact moving through pipeline stages
type Lead struct {
	ID           string   `json:"id" db:"id"`
	Name         string   `json:"name" db:"name"`
	Company      string   `json:"company" db:"company"`
	Email        string   `json:"email" db:"email"`
	Value        float64  `json:"value" db:"value"`
	Stage        string   `json:"stage" db:"stage"`
	Owner        string   `json:"owner" db:"owner"`
	LastActivity string   `json:"last_activity" db:"last_activity"`
	Tags         []string `json:"tags,omitempty" db:"tags"`
}

// LeadCreateRequest represents the payload for creating a lead
type LeadCreateRequest struct {
	Name         string   `json:"name" validate:"required"`
	Company      string   `json:"company"`
	Email        string   `json:"email"`
	Value        float64  `json:"value"`
	Stage        string   `json:"stage"`
	Owner        string   `json:"owner"`
	LastActivity string   `json:"last_activity"`
	Tags         []string `json:"tags,omitempty"`
}

// LeadUpdateRequest represents a partial lead update. Nil fields are left
// untouched on the stored record.
type LeadUpdateRequest struct {
	Name         *string   `json:"name"`
	Company      *string   `json:"company"`
	Email        *string   `json:"email"`
	Value        *float64  `json:"value"`
	Stage        *string   `json:"stage"`
	Owner        *string   `json:"owner"`
	LastActivity *string   `json:"last_activity"`
	Tags         *[]string `json:"tags"`
}

// Fields converts the request into the patch map consumed by the data
// access layer. Only set fields appear in the map.
func (r *LeadUpdateRequest) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if r.Name != nil {
		fields["name"] = *r.Name
	}
	if r.Company != nil {
		fields["company"] = *r.Company
	}
	if r.Email != nil {
		fields["email"] = *r.Email
	}
	if r.Value != nil {
		fields["value"] = *r.Value
	}
	if r.Stage != nil {
		fields["stage"] = *r.Stage
	}
	if r.Owner != nil {
		fields["owner"] = *r.Owner
	}
	if r.LastActivity != nil {
		fields["last_activity"] = *r.LastActivity
	}
	if r.Tags != nil {
		fields["tags"] = *r.Tags
	}
	return fields
}
