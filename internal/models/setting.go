package models

// Setting is a key/value site setting.
type Setting struct {
	Key   string
	Value string
}
