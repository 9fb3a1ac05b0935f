package chunker

import "github.com/pkoukk/tiktoken-go"

// tiktokenCounter counts tokens using a tiktoken BPE encoding.
type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var _ TokenCounter = (*tiktokenCounter)(nil)

func newTiktokenCounter(encodingName string) (*tiktokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &tiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of BPE tokens in text.
func (t *tiktokenCounter) Count(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
