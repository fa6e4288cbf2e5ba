package dictionary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/assistext/predict/pkg/predicterr"
	"github.com/assistext/predict/pkg/token"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Word-dictionary file format (4.J):
//   [UTF-length-prefixed identifier][4-byte id-generator state][word records...]
// Each record: [1-byte type][4-byte id][type-specific payload].

const (
	dirtyBitUser   = 1 << 0
	dirtyBitSystem = 1 << 1
)

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeRecord(w *bufio.Writer, word *Word) error {
	if err := w.WriteByte(byte(word.Type)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, word.ID); err != nil {
		return err
	}
	switch word.Type {
	case WordTag:
		return binary.Write(w, binary.LittleEndian, uint32(word.TagValue))
	case WordEquivalenceClass:
		return binary.Write(w, binary.LittleEndian, uint32(word.Class))
	case WordSimple, WordUser:
		if err := writeString(w, word.Surface); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, word.ProbFactor); err != nil {
			return err
		}
		if err := w.WriteByte(boolByte(word.ForceValid)); err != nil {
			return err
		}
		if err := w.WriteByte(boolByte(word.ForceInvalid)); err != nil {
			return err
		}
		if err := w.WriteByte(dirtyBits(word)); err != nil {
			return err
		}
		if word.Type == WordUser {
			if err := binary.Write(w, binary.LittleEndian, word.UsageCount); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, word.LastUse); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown word type %d", predicterr.ErrCorruptFile, word.Type)
	}
}

func readRecord(r io.Reader) (*Word, error) {
	typeByte := make([]byte, 1)
	if _, err := io.ReadFull(r, typeByte); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	wt := WordType(typeByte[0])
	var id uint32
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
	}
	w := &Word{ID: id, Type: wt, ProbFactor: 1.0}
	switch wt {
	case WordTag:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		w.TagValue = Tag(v)
	case WordEquivalenceClass:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		w.Class = token.EquivalenceClass(v)
	case WordSimple, WordUser:
		surface, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		w.Surface = surface
		if err := binary.Read(r, binary.LittleEndian, &w.ProbFactor); err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		fv, err := readByte(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		w.ForceValid = fv != 0
		iv, err := readByte(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		w.ForceInvalid = iv != 0
		db, err := readByte(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
		}
		w.UserDirty = db&dirtyBitUser != 0
		w.SystemDirty = db&dirtyBitSystem != 0
		if wt == WordUser {
			if err := binary.Read(r, binary.LittleEndian, &w.UsageCount); err != nil {
				return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &w.LastUse); err != nil {
				return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown word type %d", predicterr.ErrCorruptFile, wt)
	}
	return w, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func dirtyBits(w *Word) byte {
	var b byte
	if w.UserDirty {
		b |= dirtyBitUser
	}
	if w.SystemDirty {
		b |= dirtyBitSystem
	}
	return b
}

func readByte(r io.Reader) (byte, error) {
	buf := make([]byte, 1)
	_, err := io.ReadFull(r, buf)
	return buf[0], err
}

// Save writes the full dictionary (every word, every variant) to path.
func (d *Dictionary) Save(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := writeString(w, d.identifier); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	if err := binary.Write(w, binary.LittleEndian, d.nextID); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	for _, word := range d.words {
		if err := writeRecord(w, word); err != nil {
			return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
		}
	}
	return w.Flush()
}

// Load reads a full dictionary file written by Save, replacing any
// pre-seeded state.
func Load(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	identifier, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
	}
	d := New(identifier)
	d.words = d.words[:0]
	d.nextID = 0
	if err := binary.Read(r, binary.LittleEndian, &d.nextID); err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
	}
	for {
		word, err := readRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for uint32(len(d.words)) <= word.ID {
			d.words = append(d.words, nil)
		}
		d.words[word.ID] = word
		if word.Surface != "" {
			d.trie.Insert(patricia.Prefix(word.Surface), word.ID)
		}
	}
	return d, nil
}

// SaveUserOverlay persists every User word and every dirty non-Tag,
// non-EquivalenceClass word (4.C).
func (d *Dictionary) SaveUserOverlay(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := writeString(w, d.identifier); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	if err := binary.Write(w, binary.LittleEndian, d.nextID); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	for _, word := range d.words {
		if !word.IsPersistableToOverlay() {
			continue
		}
		if err := writeRecord(w, word); err != nil {
			return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
		}
	}
	return w.Flush()
}

// LoadUserOverlay merges a user overlay into d. Fails with
// predicterr.ErrDictionaryMismatch if the overlay's embedded identifier
// differs from d's; d remains usable in that case (4.C).
func (d *Dictionary) LoadUserOverlay(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	identifier, err := readString(r)
	if err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if identifier != d.identifier {
		return predicterr.ErrDictionaryMismatch
	}
	var overlayNextID uint32
	if err := binary.Read(r, binary.LittleEndian, &overlayNextID); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
	}
	if overlayNextID > d.nextID {
		d.nextID = overlayNextID
	}
	for {
		word, err := readRecord(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if word.Type == WordTag || word.Type == WordEquivalenceClass {
			continue
		}
		for uint32(len(d.words)) <= word.ID {
			d.words = append(d.words, nil)
		}
		d.words[word.ID] = word
		if word.Surface != "" {
			d.trie.Insert(patricia.Prefix(word.Surface), word.ID)
		}
	}
	return nil
}
