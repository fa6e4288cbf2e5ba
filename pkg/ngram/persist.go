package ngram

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/assistext/predict/pkg/predicterr"
)

// Static/dynamic trie file layout (4.J):
//   [header][root record][level 1 block]...[level maxOrder block]
// The header reserves space for the root and for dictionary-level metadata,
// written last, back-patched: a zeroed placeholder is written first so the
// level blocks can be laid out and their byte offsets learned, then the
// header is rewritten in place via Seek.

const dynamicRecordSize = 16

func headerSize(maxOrder int, identifier string) int64 {
	levels := maxOrder + 1
	return int64(4 + 8 + 4 + len(identifier) + levels*4*2 + 4)
}

func writeHeader(w io.Writer, maxOrder uint32, totalUnigram uint64, identifier string, levelOffsets, levelCounts []uint32, rootOffset uint32) error {
	if err := binary.Write(w, binary.LittleEndian, maxOrder); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, totalUnigram); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(identifier))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, identifier); err != nil {
		return err
	}
	for _, v := range levelOffsets {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, v := range levelCounts {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, rootOffset)
}

// buildLevels groups dt's nodes by depth, each level ordered so that a
// parent's children occupy a contiguous run within the next level — the
// "parent-groups contiguous" ordering 4.J requires for childrenOffset
// slicing. Children within a node are visited in sorted id order for
// reproducible output.
func buildLevels(root *DynamicNode, maxOrder int) [][]*DynamicNode {
	levels := make([][]*DynamicNode, maxOrder+1)
	levels[0] = []*DynamicNode{root}
	for d := 0; d < maxOrder; d++ {
		var next []*DynamicNode
		for _, n := range levels[d] {
			for _, id := range sortedChildIDs(n) {
				next = append(next, n.children[id])
			}
		}
		levels[d+1] = next
	}
	return levels
}

func sortedChildIDs(n *DynamicNode) []uint32 {
	ids := make([]uint32, 0, len(n.children))
	for id := range n.children {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// computeChildStarts maps each node to the index of its first child within
// the next level's array, so childrenOffset can be computed once that
// level's own file offset is known.
func computeChildStarts(levels [][]*DynamicNode) map[*DynamicNode]uint32 {
	starts := make(map[*DynamicNode]uint32, len(levels))
	for d := 0; d < len(levels)-1; d++ {
		var idx uint32
		for _, n := range levels[d] {
			starts[n] = idx
			idx += uint32(len(n.children))
		}
	}
	return starts
}

func levelOffsetsAndCounts(levels [][]*DynamicNode, recordSize int64, start int64) ([]uint32, []uint32) {
	offsets := make([]uint32, len(levels))
	counts := make([]uint32, len(levels))
	cursor := start
	for d, lvl := range levels {
		offsets[d] = uint32(cursor)
		counts[d] = uint32(len(lvl))
		cursor += int64(len(lvl)) * recordSize
	}
	return offsets, counts
}

// WriteStaticTrieFile serializes dt into the static trie file format,
// suitable for Open. dt is re-estimated (UpdateProbabilities) before
// writing so frequencies/back-off weights are current.
func WriteStaticTrieFile(path string, dt *DynamicTrie, identifier string) error {
	dt.UpdateProbabilities()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	defer f.Close()

	maxOrder := dt.MaxOrder()
	hSize := headerSize(maxOrder, identifier)
	if _, err := f.Write(make([]byte, hSize)); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}

	levels := buildLevels(dt.root, maxOrder)
	childStart := computeChildStarts(levels)
	levelOffsets, levelCounts := levelOffsetsAndCounts(levels, staticRecordSize, hSize)

	w := bufio.NewWriter(f)
	for d, lvl := range levels {
		for _, n := range lvl {
			if _, err := w.Write(encodeStaticRecord(n, d, maxOrder, levelOffsets, childStart)); err != nil {
				return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	hw := bufio.NewWriter(f)
	if err := writeHeader(hw, uint32(maxOrder), dt.TotalUnigramCount(), identifier, levelOffsets, levelCounts, levelOffsets[0]); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	return hw.Flush()
}

func encodeStaticRecord(n *DynamicNode, depth, maxOrder int, levelOffsets []uint32, childStart map[*DynamicNode]uint32) []byte {
	buf := make([]byte, staticRecordSize)
	var wordID uint32
	if depth > 0 {
		wordID = n.wordID
	}
	childrenCount := uint32(len(n.children))
	var childrenOffset uint32
	if depth < maxOrder && childrenCount > 0 {
		childrenOffset = levelOffsets[depth+1] + childStart[n]*staticRecordSize
	}
	binary.LittleEndian.PutUint32(buf[0:], wordID)
	binary.LittleEndian.PutUint32(buf[4:], childrenCount)
	binary.LittleEndian.PutUint32(buf[8:], childrenOffset)
	binary.LittleEndian.PutUint64(buf[12:], math.Float64bits(n.frequency))
	binary.LittleEndian.PutUint64(buf[20:], math.Float64bits(n.backoff))
	return buf
}

// WriteDynamicTrieFile serializes dt's raw counts (no precomputed
// probabilities — those are recomputed on load) into the 16-byte-record
// dynamic trie file format of 4.J.
func WriteDynamicTrieFile(path string, dt *DynamicTrie) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	defer f.Close()

	maxOrder := dt.MaxOrder()
	hSize := headerSize(maxOrder, "")
	if _, err := f.Write(make([]byte, hSize)); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}

	levels := buildLevels(dt.root, maxOrder)
	childStart := computeChildStarts(levels)
	levelOffsets, levelCounts := levelOffsetsAndCounts(levels, dynamicRecordSize, hSize)

	w := bufio.NewWriter(f)
	for d, lvl := range levels {
		for _, n := range lvl {
			if _, err := w.Write(encodeDynamicRecord(n, d, maxOrder, levelOffsets, childStart)); err != nil {
				return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	hw := bufio.NewWriter(f)
	if err := writeHeader(hw, uint32(maxOrder), dt.TotalUnigramCount(), "", levelOffsets, levelCounts, levelOffsets[0]); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	return hw.Flush()
}

func encodeDynamicRecord(n *DynamicNode, depth, maxOrder int, levelOffsets []uint32, childStart map[*DynamicNode]uint32) []byte {
	buf := make([]byte, dynamicRecordSize)
	var wordID uint32
	if depth > 0 {
		wordID = n.wordID
	}
	childrenCount := uint32(len(n.children))
	var childrenOffset uint32
	if depth < maxOrder && childrenCount > 0 {
		childrenOffset = levelOffsets[depth+1] + childStart[n]*dynamicRecordSize
	}
	binary.LittleEndian.PutUint32(buf[0:], wordID)
	binary.LittleEndian.PutUint32(buf[4:], childrenCount)
	binary.LittleEndian.PutUint32(buf[8:], childrenOffset)
	binary.LittleEndian.PutUint32(buf[12:], uint32(n.count))
	return buf
}

// OpenDynamicTrieFile reads a file written by WriteDynamicTrieFile and
// rebuilds a DynamicTrie, recomputing probabilities once fully loaded (4.J).
func OpenDynamicTrieFile(path string, sentenceStartID uint32, cfg DiscountConfig) (*DynamicTrie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: file too small", predicterr.ErrCorruptFile)
	}
	cursor := 0
	readU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(data[cursor:])
		cursor += 4
		return v
	}
	readU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(data[cursor:])
		cursor += 8
		return v
	}
	maxOrder := readU32()
	_ = readU64() // informational total-unigram-count, recomputed after load
	idLen := readU32()
	if cursor+int(idLen) > len(data) {
		return nil, fmt.Errorf("%w: identifier length out of range", predicterr.ErrCorruptFile)
	}
	cursor += int(idLen)

	levels := int(maxOrder) + 1
	levelOffsets := make([]uint32, levels)
	levelCounts := make([]uint32, levels)
	for i := 0; i < levels; i++ {
		levelOffsets[i] = readU32()
	}
	for i := 0; i < levels; i++ {
		levelCounts[i] = readU32()
	}
	rootOffset := readU32()

	dt := NewDynamic(int(maxOrder), sentenceStartID, cfg)
	if int(rootOffset)+dynamicRecordSize > len(data) {
		return nil, fmt.Errorf("%w: root offset out of range", predicterr.ErrCorruptFile)
	}
	if err := loadDynamicLevel(data, dt.root, rootOffset, 0, int(maxOrder)); err != nil {
		return nil, err
	}
	dt.UpdateProbabilities()
	return dt, nil
}

func loadDynamicLevel(data []byte, n *DynamicNode, offset uint32, depth, maxOrder int) error {
	if depth >= maxOrder {
		return nil
	}
	childrenCount := binary.LittleEndian.Uint32(data[offset+4:])
	childrenOffset := binary.LittleEndian.Uint32(data[offset+8:])
	if childrenCount == 0 {
		return nil
	}
	n.children = make(map[uint32]*DynamicNode, childrenCount)
	for i := uint32(0); i < childrenCount; i++ {
		recOff := childrenOffset + i*dynamicRecordSize
		if int(recOff)+dynamicRecordSize > len(data) {
			return fmt.Errorf("%w: child record out of range at offset %d", predicterr.ErrCorruptFile, recOff)
		}
		wordID := binary.LittleEndian.Uint32(data[recOff:])
		count := binary.LittleEndian.Uint32(data[recOff+12:])
		child := &DynamicNode{wordID: wordID, count: uint64(count)}
		n.children[wordID] = child
		if err := loadDynamicLevel(data, child, recOff, depth+1, maxOrder); err != nil {
			return err
		}
	}
	return nil
}
