package endpoint

import "golang.org/x/text/encoding/ianaindex"

// SupportedCharset reports whether name denotes a text encoding we can
// decode. Names are looked up in the IANA registry; registered names
// without an available decoder count as unsupported.
func SupportedCharset(name string) bool {
	enc, err := ianaindex.IANA.Encoding(name)
	return err == nil && enc != nil
}
