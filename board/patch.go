package board

// TaskPatch lists the task fields a partial update may carry. A nil field
// is omitted from the request body entirely, never sent as null.
type TaskPatch struct {
	Name        *string
	Description *string
	DueDate     *string
	IsCompleted *bool
	Position    *int
}

// IsEmpty reports whether the patch sets no fields.
func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.DueDate == nil && p.IsCompleted == nil && p.Position == nil
}

// params serializes exactly the set fields, in the server's parameter names.
func (p TaskPatch) params() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.DueDate != nil {
		fields["due_date"] = *p.DueDate
	}
	if p.IsCompleted != nil {
		fields["is_completed"] = *p.IsCompleted
	}
	if p.Position != nil {
		fields["position"] = *p.Position
	}
	return fields
}

// StringPtr returns a pointer to the provided string.
func StringPtr(value string) *string {
	return &value
}

// BoolPtr returns a pointer to the provided bool.
func BoolPtr(value bool) *bool {
	return &value
}

// IntPtr returns a pointer to the provided int.
func IntPtr(value int) *int {
	return &value
}
