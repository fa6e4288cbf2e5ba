// Package ngram implements the static on-disk trie (4.D), the dynamic
// in-memory trie (4.E), absolute-discounting probability estimation and
// static/dynamic interpolation (4.F), and the two trie file formats (4.J).
//
// The static trie mmaps its backing file the way
// SteosOfficial-SteosMorphy's analyzer.go maps a compiled dictionary file,
// to avoid copying the whole trie into the Go heap. Unlike that analyzer,
// each node record here is a tightly packed 28-byte layout (three uint32s
// immediately followed by two float64s) that does not match any naturally
// aligned Go struct — reinterpreting it via unsafe would require the
// compiler to insert the same padding the file doesn't have. Records are
// therefore decoded field-by-field with encoding/binary directly against
// the mmap'd byte slice: still zero-copy for the file as a whole, just not
// zero-copy per field.
package ngram

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/assistext/predict/internal/logger"
	"github.com/assistext/predict/pkg/predicterr"
)

var log = logger.Default("ngram")

const staticRecordSize = 28

// StaticNode is a node of the on-disk trie. Children are loaded on first
// access and cached in a per-node map with no eviction, since working sets
// are small compared to RAM in target deployments (4.D).
type StaticNode struct {
	wordID         uint32
	childrenCount  uint32
	childrenOffset uint32
	frequency      float64
	backoff        float64
	level          uint32

	mu       sync.Mutex
	children map[uint32]*StaticNode
	trie     *StaticTrie
}

// Frequency is the node's precomputed conditional frequency.
func (n *StaticNode) Frequency() float64 { return n.frequency }

// BackoffWeight is the node's precomputed back-off mass.
func (n *StaticNode) BackoffWeight() float64 { return n.backoff }

// StaticTrie is a read-only, lazily-loaded n-gram trie backed by an mmap'd
// file. A single file handle and mapping is shared across all requests in a
// single-threaded predictor (5).
type StaticTrie struct {
	data              mmap.MMap
	closer            *os.File
	maxOrder          uint32
	totalUnigramCount uint64
	identifier        string
	levelOffsets      []uint32
	levelCounts       []uint32
	rootOffset        uint32
	root              *StaticNode
}

// Open maps path and reads the header and root node, leaving children lazy
// (4.D "open").
func Open(path string) (*StaticTrie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	t := &StaticTrie{data: data, closer: f}
	if err := t.readHeader(); err != nil {
		data.Unmap()
		f.Close()
		return nil, err
	}
	t.root = t.decodeRecord(t.rootOffset, 0)
	return t, nil
}

// Close unmaps the file and releases the handle (5, "static trie's file
// handle is owned by the Predictor and closed on dispose").
func (t *StaticTrie) Close() error {
	if err := t.data.Unmap(); err != nil {
		return fmt.Errorf("%w: %v", predicterr.ErrIO, err)
	}
	return t.closer.Close()
}

// TotalUnigramCount is the denominator used to derive the dynamic
// interpolation weight in 4.F.
func (t *StaticTrie) TotalUnigramCount() uint64 { return t.totalUnigramCount }

func (t *StaticTrie) readHeader() error {
	data := t.data
	if len(data) < 4 {
		return fmt.Errorf("%w: file too small for header", predicterr.ErrCorruptFile)
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
	t.maxOrder = readU32()
	t.totalUnigramCount = readU64()
	idLen := readU32()
	if cursor+int(idLen) > len(data) {
		return fmt.Errorf("%w: identifier length out of range", predicterr.ErrCorruptFile)
	}
	t.identifier = string(data[cursor : cursor+int(idLen)])
	cursor += int(idLen)

	levels := int(t.maxOrder) + 1
	t.levelOffsets = make([]uint32, levels)
	t.levelCounts = make([]uint32, levels)
	for i := 0; i < levels; i++ {
		t.levelOffsets[i] = readU32()
	}
	for i := 0; i < levels; i++ {
		t.levelCounts[i] = readU32()
	}
	t.rootOffset = readU32()
	if int(t.rootOffset)+staticRecordSize > len(data) {
		return fmt.Errorf("%w: root offset out of range", predicterr.ErrCorruptFile)
	}
	return nil
}

func (t *StaticTrie) decodeRecord(offset uint32, level uint32) *StaticNode {
	data := t.data
	return &StaticNode{
		wordID:         binary.LittleEndian.Uint32(data[offset:]),
		childrenCount:  binary.LittleEndian.Uint32(data[offset+4:]),
		childrenOffset: binary.LittleEndian.Uint32(data[offset+8:]),
		frequency:      decodeFloat64(data[offset+12:]),
		backoff:        decodeFloat64(data[offset+20:]),
		level:          level,
		trie:           t,
	}
}

func decodeFloat64(b []byte) float64 {
	bits := binary.LittleEndian.Uint64(b)
	return math.Float64frombits(bits)
}

func (t *StaticTrie) loadChildren(n *StaticNode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.children != nil {
		return
	}
	n.children = make(map[uint32]*StaticNode, n.childrenCount)
	for i := uint32(0); i < n.childrenCount; i++ {
		off := n.childrenOffset + i*staticRecordSize
		if int(off)+staticRecordSize > len(t.data) {
			log.Warnf("static trie: child record out of range at offset %d", off)
			break
		}
		child := t.decodeRecord(off, n.level+1)
		n.children[child.wordID] = child
	}
}

// NodeFor walks the trie along prefix, loading each level's children on
// first touch. Returns nil if the path does not exist (4.D).
func (t *StaticTrie) NodeFor(prefix []uint32) *StaticNode {
	cur := t.root
	for _, w := range prefix {
		t.loadChildren(cur)
		next, ok := cur.children[w]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// Probability implements the recursive back-off probability of 4.F: if the
// context is empty, return the root child's stored frequency; else descend
// one node, adding its back-off-weighted tail probability, or fall back to
// the shorter context entirely if the full context isn't present.
func (t *StaticTrie) Probability(prefix []uint32, target uint32) float64 {
	if len(prefix) == 0 {
		t.loadChildren(t.root)
		if c, ok := t.root.children[target]; ok {
			return c.frequency
		}
		return 0
	}
	n := t.NodeFor(prefix)
	if n == nil {
		return t.Probability(prefix[1:], target)
	}
	t.loadChildren(n)
	childFreq := 0.0
	if c, ok := n.children[target]; ok {
		childFreq = c.frequency
	}
	return childFreq + n.backoff*t.Probability(prefix[1:], target)
}

// NextWord is one candidate continuation returned by ListNextWords.
type NextWord struct {
	WordID    uint32
	Frequency float64
}

// ListNextWords returns up to limit candidate children of the deepest node
// matched by prefix, skipping ids present in exclude (4.D).
func (t *StaticTrie) ListNextWords(prefix []uint32, limit int, exclude map[uint32]bool) []NextWord {
	n := t.NodeFor(prefix)
	if n == nil {
		return nil
	}
	t.loadChildren(n)
	out := make([]NextWord, 0, min(limit, len(n.children)))
	for id, c := range n.children {
		if exclude != nil && exclude[id] {
			continue
		}
		out = append(out, NextWord{WordID: id, Frequency: c.frequency})
		if len(out) >= limit {
			break
		}
	}
	return out
}

// HasBigram reports whether right is a direct, stored child of left's node
// — a real bigram, as opposed to a probability only reachable through
// back-off. Used by correction candidate integration (4.H: "emit only if
// the bigram exists in the static trie").
func (t *StaticTrie) HasBigram(left, right uint32) bool {
	n := t.NodeFor([]uint32{left})
	if n == nil {
		return false
	}
	t.loadChildren(n)
	_, ok := n.children[right]
	return ok
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
