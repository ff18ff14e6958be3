// Package nlu turns raw utterances into an intent plus typed entities using
// fixed, ordered pattern tables.
package nlu

import (
	"regexp"
	"strings"

	"github.com/BTreeMap/ParcelPipe/internal/models"
)

// intentRule pairs an intent with the patterns that select it.
type intentRule struct {
	intent   models.Intent
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// intentTable is evaluated top to bottom; the first rule with a matching
// pattern wins. Exact-token rules come before the broad substring rules they
// overlap with ("no" must resolve to deny before skip's "none"/"n/a" checks).
var intentTable = []intentRule{
	{models.IntentConfirm, compileAll(
		`^(yes|yep|yeah|yup|sure|ok|okay|correct|right|affirmative|y)[.!]*$`,
		`^(yes|yeah|yep|sure|ok|okay)[,.!]?\s+(please|thanks|thank you)[.!]*$`,
		`^that('s| is) (correct|right)\b`,
		`\bsounds good\b`,
	)},
	{models.IntentDeny, compileAll(
		`^(no|nope|nah|not really|n)[.!]*$`,
		`^(no|nope|nah)[,.!]*\s+(thanks|thank you|thx|not needed|not necessary|not required|no need|need(ed)?)\b`,
		`^not (needed|necessary|required)[.!]*$`,
		`\bthat('s| is) (not correct|incorrect|not right|wrong)\b`,
	)},
	{models.IntentHelp, compileAll(
		`\bhelp\b`,
		`\bwhat can (you|i) do\b`,
		`\bhow (does this|do i) work\b`,
		`\bcommands?\b`,
		`\boptions\b`,
	)},
	{models.IntentSkip, compileAll(
		`\bskip\b`,
		`\bpass\b`,
		`\bnext\b`,
		`\bleave (it )?blank\b`,
		`\bnone\b`,
		`\bnot applicable\b`,
		`\bn/?a\b`,
	)},
	{models.IntentSameAsLast, compileAll(
		`\bsame as (the )?(last|previous|before)\b`,
		`\brepeat( last)?\b`,
		`\bditto\b`,
		`\bcopy (from )?(the )?(last|previous)\b`,
	)},
	{models.IntentFinish, compileAll(
		`\bfinish(ed)?\b`,
		`\bdone\b`,
		`\bcomplete\b`,
		`^end$`,
		`\bthat('s| is) (all|it)\b`,
		`\bno more\b`,
	)},
	{models.IntentCancel, compileAll(
		`\bcancel\b`,
		`\babort\b`,
		`\bquit\b`,
		`\bexit\b`,
		`\bstop\b`,
		`\bstart over\b`,
	)},
	{models.IntentPause, compileAll(
		`\bpause\b`,
		`\bsave (for |and )?(later|now)\b`,
		`\bcome back later\b`,
	)},
	{models.IntentExport, compileAll(
		`\bexport\b`,
		`\bdownload\b`,
		`\bsave (to )?(a )?file\b`,
		`\bget (the )?json\b`,
	)},
	{models.IntentViewSummary, compileAll(
		`\bview summary\b`,
		`\bshow (me )?(all )?(my )?packages\b`,
		`\blist packages\b`,
		`\bwhat('s| is) in my (cart|list)\b`,
		`\bsummary\b`,
	)},
	{models.IntentAddPackage, compileAll(
		`\badd (a |another |new )?package\b`,
		`\bnew package\b`,
		`\bcreate (a )?package\b`,
		`\bstart (a )?new one\b`,
		`\banother (one|package)\b`,
		`^add$`,
	)},
	{models.IntentEditPackage, compileAll(
		`\bedit\b`,
		`\bchange\b`,
		`\bmodify\b`,
		`\bupdate\b`,
	)},
	{models.IntentDeletePackage, compileAll(
		`\bdelete\b`,
		`\bremove\b`,
	)},
	{models.IntentBulkEdit, compileAll(
		`\ball packages\b`,
		`\bmake all\b`,
		`\bset all\b`,
	)},
	{models.IntentUseTemplate, compileAll(
		`\buse (the |my )?template\b`,
		`\bload (the |my )?template\b`,
		`\bfrom (a |the |my )?template\b`,
	)},
	{models.IntentSaveTemplate, compileAll(
		`\bsave (this )?(as )?(a )?template\b`,
		`\bcreate (a )?template\b`,
		`\bremember this\b`,
	)},
}

// Intents that discard or close the session only match short, command-shaped
// utterances. "Don't stop at the gate" is a delivery note, not a cancel.
var commandOnly = map[models.Intent]bool{
	models.IntentFinish: true,
	models.IntentCancel: true,
}

// MaxCommandWords bounds the length of an utterance that can carry a
// command-only intent.
const MaxCommandWords = 6

// MatchIntent returns the first intent in the catalog whose patterns match
// text, or models.IntentNone.
func MatchIntent(text string) models.Intent {
	t := strings.TrimSpace(text)
	if t == "" {
		return models.IntentNone
	}
	words := len(strings.Fields(t))
	for _, rule := range intentTable {
		if commandOnly[rule.intent] && words > MaxCommandWords {
			continue
		}
		for _, p := range rule.patterns {
			if p.MatchString(t) {
				return rule.intent
			}
		}
	}
	return models.IntentNone
}

// IntentOrder returns the catalog's evaluation order.
func IntentOrder() []models.Intent {
	out := make([]models.Intent, len(intentTable))
	for i, r := range intentTable {
		out[i] = r.intent
	}
	return out
}

// StripIntent removes every phrase matching intent's patterns from text and
// returns the remainder trimmed of surrounding separators.
func StripIntent(text string, intent models.Intent) string {
	out := text
	for _, rule := range intentTable {
		if rule.intent != intent {
			continue
		}
		for _, p := range rule.patterns {
			out = p.ReplaceAllString(out, " ")
		}
	}
	return strings.Trim(out, " \t\r\n,.;:-")
}
