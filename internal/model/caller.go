package model

import "strings"

// Caller is the identity propagated with every request: the flat
// name/pin/grade/gender/guest/admin field set.
type Caller struct {
	Name   string `json:"name"`
	PIN    string `json:"pin"`
	Grade  string `json:"grade"`
	Gender string `json:"gender"`
	Guest  bool   `json:"guest"`
	Admin  bool   `json:"admin"`
}

// Identified reports whether both name and PIN are present.
func (c Caller) Identified() bool {
	return strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.PIN) != ""
}
