package models

// Document is a single review or response file loaded from disk.
type Document struct {
	Name string // file name as found in the directory
	Key  string // matching key, depends on the match mode
	Text string
}

// Pairing joins a review with the response that shares its key.
type Pairing struct {
	Key      string
	Review   Document
	Response Document
}

// Paper is the optional manuscript handed to the judge as context.
type Paper struct {
	Name string
	PDF  []byte // set when the paper is a PDF; sent as a document attachment
	Text string // set for plain-text papers
}

// Empty reports whether the paper carries no content.
func (p *Paper) Empty() bool {
	return p == nil || (len(p.PDF) == 0 && p.Text == "")
}
