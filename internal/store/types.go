package store

import "time"

// Cache domain types

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	ConfigHash  string
	LastChecked time.Time
}

// Call is one recognized hook call and the state the analyzer left it in.
type Call struct {
	ID        int64
	FileID    int64
	Hook      string
	State     string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	StartByte int
	EndByte   int
}

type Finding struct {
	ID         int64
	FileID     int64
	CallID     int64
	Kind       string
	Dependency string
	Hook       string
	Reason     string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
	StartByte  int
	EndByte    int
}

// FindingReference is one capture site of a missing dependency.
type FindingReference struct {
	ID        int64
	FindingID int64
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// FindingFilter narrows QueryFindings and Summary. Zero fields match all.
type FindingFilter struct {
	Paths      []string
	PathPrefix string
	Language   string
	Kinds      []string
	Hook       string
	Dependency string
}

// FileFinding is a Finding joined with its file.
type FileFinding struct {
	Finding
	Path     string
	Language string
}

// Summary counts cached results.
type Summary struct {
	Files    int
	Calls    map[string]int
	Findings map[string]int
}
