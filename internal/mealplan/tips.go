package mealplan

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mamamind/mamamind/internal/models"
)

// MaxTipLength bounds a cleaned tip before first-sentence truncation kicks in.
const MaxTipLength = 150

// nutrientFact describes what a known ingredient contributes during pregnancy.
type nutrientFact struct {
	Nutrient string
	Benefit  string
	Source   string
}

// nutrientTable maps ingredient keywords to facts; scanned in order, first
// match wins.
var nutrientTable = []struct {
	Keyword string
	Fact    nutrientFact
}{
	{"millet", nutrientFact{"iron", "essential for preventing anemia", "ACOG guidelines"}},
	{"spinach", nutrientFact{"folate", "supports fetal development", "March of Dimes"}},
	{"salmon", nutrientFact{"omega-3 fatty acids", "promotes brain development", "APA"}},
	{"mackerel", nutrientFact{"omega-3 fatty acids", "promotes brain development", "APA"}},
	{"tilapia", nutrientFact{"protein", "supports tissue growth", "Mayo Clinic"}},
	{"fish", nutrientFact{"omega-3 fatty acids", "promotes brain development", "APA"}},
	{"chicken", nutrientFact{"protein", "supports muscle development", "ACOG"}},
	{"turkey", nutrientFact{"iron", "prevents anemia", "ACOG"}},
	{"beef", nutrientFact{"iron", "prevents anemia", "ACOG"}},
	{"eggs", nutrientFact{"choline", "supports brain development", "NIH"}},
	{"avocado", nutrientFact{"folate", "prevents birth defects", "CDC"}},
	{"plantain", nutrientFact{"potassium", "regulates blood pressure", "AHA"}},
	{"sweet potato", nutrientFact{"beta-carotene", "supports vision development", "NIH"}},
	{"beans", nutrientFact{"fiber", "aids digestion", "ACOG"}},
	{"quinoa", nutrientFact{"protein", "provides complete amino acids", "Harvard Health"}},
	{"brown rice", nutrientFact{"complex carbs", "provides sustained energy", "Mayo Clinic"}},
	{"coconut", nutrientFact{"healthy fats", "supports nutrient absorption", "NIH"}},
	{"peanuts", nutrientFact{"protein", "supports growth", "ACOG"}},
	{"cashews", nutrientFact{"magnesium", "supports bone health", "NIH"}},
	{"water", nutrientFact{"hydration", "aids nutrient transport", "ACOG"}},
}

// DeriveTip builds a deterministic nutrition tip for a day by matching known
// ingredient keywords against the day's meal text. With no match it falls
// back to a condition- or trimester-based default.
func DeriveTip(day models.Day, profile models.UserProfile) string {
	var sb strings.Builder
	for _, m := range day.Meals {
		sb.WriteString(strings.ToLower(m.Name))
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(m.Description))
		sb.WriteString(" ")
	}
	text := sb.String()

	var fact *nutrientFact
	for _, entry := range nutrientTable {
		if strings.Contains(text, entry.Keyword) {
			fact = &entry.Fact
			break
		}
	}
	if fact == nil {
		fact = defaultFact(profile)
	}
	return capitalize(fact.Nutrient) + " " + fact.Benefit + " - " + fact.Source
}

func defaultFact(profile models.UserProfile) *nutrientFact {
	switch {
	case profile.HasCondition("Gestational diabetes"):
		return &nutrientFact{"fiber", "helps regulate blood sugar", "ADA"}
	case profile.Trimester == 3:
		return &nutrientFact{"calcium", "supports final bone development", "ACOG"}
	default:
		return &nutrientFact{"iron", "prevents pregnancy anemia", "ACOG"}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

var bracketTagRe = regexp.MustCompile(`\[[^\]]*\]`)

// CleanTip sanitizes AI-generated tip text for delivery: bracketed
// pseudo-tags are stripped, overlong tips are cut at the first sentence (or
// hard-truncated with an ellipsis), and terminal punctuation is ensured.
func CleanTip(tip string) string {
	tip = bracketTagRe.ReplaceAllString(tip, "")
	tip = strings.Join(strings.Fields(tip), " ")
	if tip == "" {
		return ""
	}

	if len([]rune(tip)) > MaxTipLength {
		if sentence := firstSentence(tip); sentence != "" && len([]rune(sentence)) <= MaxTipLength {
			tip = sentence
		} else {
			runes := []rune(tip)
			tip = strings.TrimSpace(string(runes[:MaxTipLength-1])) + "…"
		}
	}

	if last, _ := utf8.DecodeLastRuneInString(tip); !strings.ContainsRune(".!?…", last) {
		tip += "."
	}
	return tip
}

// firstSentence returns text up to and including the first sentence
// terminator, or "" if none is found.
func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	return ""
}
