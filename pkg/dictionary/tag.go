package dictionary

// Tag is a closed enumeration of reserved dictionary ids. Tag words occupy
// the lowest ids and are never written to the user overlay file (3).
type Tag uint32

const (
	TagUnknown       Tag = 0
	TagSentenceStart Tag = 1
	TagSentenceEnd   Tag = 2
	tagCount             = 3
)

func (t Tag) Name() string {
	switch t {
	case TagUnknown:
		return "<unk>"
	case TagSentenceStart:
		return "<s>"
	case TagSentenceEnd:
		return "</s>"
	default:
		return "<reserved>"
	}
}

// UnknownID is the sentinel id for "id for unknown word" (4.A contract 3).
const UnknownID uint32 = uint32(TagUnknown)

// SentenceStartID is the id padded into prefixes shorter than the model's
// max order (4.I step 3) and excluded from discount estimation (4.F).
const SentenceStartID uint32 = uint32(TagSentenceStart)

// SentenceEndID marks the end of a trained sentence.
const SentenceEndID uint32 = uint32(TagSentenceEnd)
