package types

// SourceBundle is the three-part text payload edited by the user.
//
// The bundle is owned by the host application and passed by value into the
// composer on every render request. No validation is performed on any of the
// three buffers: arbitrary text, including intentionally broken markup or
// script, is accepted as-is.
type SourceBundle struct {
	HTML       string `json:"html"`
	CSS        string `json:"css"`
	JavaScript string `json:"javascript"`
}

// IsEmpty reports whether all three buffers are empty.
func (b SourceBundle) IsEmpty() bool {
	return b.HTML == "" && b.CSS == "" && b.JavaScript == ""
}
