package label

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Classes is the classifier output enumeration, in model output order.
var Classes = []string{
	"Pepper__bell___Bacterial_spot",
	"Pepper__bell___healthy",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"Potato___healthy",
	"Tomato_Bacterial_spot",
	"Tomato_Early_blight",
	"Tomato_Late_blight",
	"Tomato_Leaf_Mold",
	"Tomato_Septoria_leaf_spot",
	"Tomato_Spider_mites_Two_spotted_spider_mite",
	"Tomato__Target_Spot",
	"Tomato__Tomato_YellowLeaf__Curl_Virus",
	"Tomato__Tomato_mosaic_virus",
	"Tomato_healthy",
}

// Count is the number of classes the classifier emits.
const Count = 15

// Healthy is the disease name reported for healthy leaves.
const Healthy = "Healthy"

// At returns the label for a classifier output index.
func At(idx int) (string, bool) {
	if idx < 0 || idx >= len(Classes) {
		return "", false
	}
	return Classes[idx], true
}

// Split turns a raw class label into display-ready (plant, disease) names.
//
// Underscore runs of any length act as a single delimiter. A trailing
// "healthy" token makes every other token the plant name. Otherwise the
// first occurrence of the longest underscore run separates the plant family
// from the disease, so "Pepper__bell___Bacterial_spot" becomes
// ("Pepper bell", "Bacterial spot") while "Tomato_Leaf_Mold" becomes
// ("Tomato", "Leaf mold"). A single non-healthy token yields an empty disease.
func Split(lbl string) (string, string) {
	tokens, runs := tokenize(lbl)
	if len(tokens) == 0 {
		return "", ""
	}
	if strings.EqualFold(tokens[len(tokens)-1], "healthy") {
		return capitalize(strings.Join(tokens[:len(tokens)-1], " ")), Healthy
	}
	if len(tokens) == 1 {
		return capitalize(tokens[0]), ""
	}
	// runs[i] is the delimiter width between tokens[i] and tokens[i+1].
	boundary := 0
	for i, w := range runs {
		if w > runs[boundary] {
			boundary = i
		}
	}
	plant := strings.Join(tokens[:boundary+1], " ")
	disease := strings.Join(tokens[boundary+1:], " ")
	return capitalize(plant), capitalize(disease)
}

// tokenize splits on underscore runs and reports the width of every run that
// sits between two tokens.
func tokenize(s string) ([]string, []int) {
	var tokens []string
	var runs []int
	width := 0
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if start >= 0 {
				tokens = append(tokens, s[start:i])
				start = -1
			}
			width++
			continue
		}
		if start < 0 {
			if len(tokens) > 0 {
				runs = append(runs, width)
			}
			start = i
			width = 0
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens, runs
}

// capitalize upper-cases the first letter and lower-cases the rest. Multi-word
// names are not title-cased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
