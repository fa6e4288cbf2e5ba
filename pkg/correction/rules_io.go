package correction

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/assistext/predict/pkg/predicterr"
)

// ruleFile is the on-disk shape of a correction-rules-root (6): a single
// top-level rule acting as the tree's root, typically with no errors of its
// own and its real rules nested as children. Disabling the root masks the
// whole tree.
type ruleFile struct {
	Root Rule `toml:"root"`
}

// LoadRuleTree reads a correction rule tree from a TOML file.
func LoadRuleTree(path string) (*Rule, error) {
	var rf ruleFile
	if _, err := toml.DecodeFile(path, &rf); err != nil {
		return nil, fmt.Errorf("%w: %v", predicterr.ErrCorruptFile, err)
	}
	return &rf.Root, nil
}

// DefaultAccentRules builds a small built-in rule tree covering the
// unaccented-vowel correction class referenced by 8's worked example ("il
// eta" -> "était"): each accented vowel is a bidirectional confusable with
// its unaccented form.
func DefaultAccentRules() *Rule {
	unbounded := func(confusion []string) *Rule {
		return &Rule{ConfusionSet: confusion, MaxFromStart: -1, MinFromStart: -1, MaxFromEnd: -1, MinFromEnd: -1}
	}
	return &Rule{
		MaxFromStart: -1, MinFromStart: -1, MaxFromEnd: -1, MinFromEnd: -1,
		Children: []*Rule{
			unbounded([]string{"e", "é", "è", "ê"}),
			unbounded([]string{"a", "à", "â"}),
			unbounded([]string{"u", "ù", "û"}),
			unbounded([]string{"i", "î", "ï"}),
			unbounded([]string{"o", "ô"}),
		},
	}
}
