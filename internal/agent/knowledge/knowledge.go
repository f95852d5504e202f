// Package knowledge holds the static product knowledge base, the deterministic
// answers built from it, and the vector index used for grounded generation.
//
// The knowledge base is loaded once and is read-only afterwards; it is safe to
// share across sessions.
package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/schema"
)

//go:embed knowledge_base.json
var defaultKnowledgeBase []byte

// Document types stored in schema.Document metadata.
const (
	DocTypeCompany = "company_info"
	DocTypePlan    = "pricing_plan"
	DocTypePolicy  = "policy"
	DocTypeFAQ     = "faq"

	MetaType = "type"
)

type Plan struct {
	Name           string   `json:"name"`
	Price          string   `json:"price"`
	Features       []string `json:"features"`
	Limitations    []string `json:"limitations,omitempty"`
	RecommendedFor string   `json:"recommended_for,omitempty"`
}

// ShortName is the first word of the plan name, lower-cased ("pro" for "Pro Plan").
func (p Plan) ShortName() string {
	fields := strings.Fields(strings.ToLower(p.Name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type Policy struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type KnowledgeBase struct {
	Company      string   `json:"company"`
	Description  string   `json:"description"`
	PricingPlans []Plan   `json:"pricing_plans"`
	Policies     []Policy `json:"policies"`
	FAQ          []FAQ    `json:"faq"`
}

// Parse decodes and validates a knowledge base document.
func Parse(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := json.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("decode knowledge base: %w", err)
	}
	if kb.Company == "" {
		return nil, fmt.Errorf("knowledge base: company is required")
	}
	if len(kb.PricingPlans) == 0 {
		return nil, fmt.Errorf("knowledge base: at least one pricing plan is required")
	}
	for i, p := range kb.PricingPlans {
		if p.Name == "" || p.Price == "" {
			return nil, fmt.Errorf("knowledge base: plan %d needs a name and a price", i)
		}
	}
	return &kb, nil
}

// Default returns the embedded AutoStream knowledge base.
func Default() (*KnowledgeBase, error) {
	return Parse(defaultKnowledgeBase)
}

// MustDefault is Default for process start-up.
func MustDefault() *KnowledgeBase {
	kb, err := Default()
	if err != nil {
		panic(err)
	}
	return kb
}

// PlanByName finds a plan by its full or short name, case-insensitively.
func (kb *KnowledgeBase) PlanByName(name string) (Plan, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range kb.PricingPlans {
		if strings.ToLower(p.Name) == name || p.ShortName() == name {
			return p, true
		}
	}
	return Plan{}, false
}

// MentionedPlan returns the first plan whose short name appears as a word in text.
func (kb *KnowledgeBase) MentionedPlan(text string) (Plan, bool) {
	ws := wordSet(text)
	for _, p := range kb.PricingPlans {
		if _, ok := ws[p.ShortName()]; ok {
			return p, true
		}
	}
	return Plan{}, false
}

// Lookup returns the policies and FAQ entries that share a keyword with text.
func (kb *KnowledgeBase) Lookup(text string) ([]Policy, []FAQ) {
	kw := keywordSet(text)
	if len(kw) == 0 {
		return nil, nil
	}
	var policies []Policy
	for _, p := range kb.Policies {
		if overlaps(kw, p.Title+" "+p.Description) {
			policies = append(policies, p)
		}
	}
	var faqs []FAQ
	for _, f := range kb.FAQ {
		if overlaps(kw, f.Question) {
			faqs = append(faqs, f)
		}
	}
	return policies, faqs
}

// Documents converts the knowledge base into retrievable documents: one for the
// company, one per plan, one per policy and one per FAQ entry.
func (kb *KnowledgeBase) Documents() []*schema.Document {
	docs := []*schema.Document{{
		ID:       "company",
		Content:  fmt.Sprintf("%s: %s", kb.Company, kb.Description),
		MetaData: map[string]any{MetaType: DocTypeCompany},
	}}

	for i, p := range kb.PricingPlans {
		docs = append(docs, &schema.Document{
			ID:      fmt.Sprintf("plan-%d", i),
			Content: planText(p),
			MetaData: map[string]any{
				MetaType:    DocTypePlan,
				"plan_name": p.Name,
				"price":     p.Price,
			},
		})
	}
	for i, p := range kb.Policies {
		docs = append(docs, &schema.Document{
			ID:       fmt.Sprintf("policy-%d", i),
			Content:  fmt.Sprintf("%s\n\n%s", p.Title, p.Description),
			MetaData: map[string]any{MetaType: DocTypePolicy, "title": p.Title},
		})
	}
	for i, f := range kb.FAQ {
		docs = append(docs, &schema.Document{
			ID:       fmt.Sprintf("faq-%d", i),
			Content:  fmt.Sprintf("Q: %s\n\nA: %s", f.Question, f.Answer),
			MetaData: map[string]any{MetaType: DocTypeFAQ, "question": f.Question},
		})
	}
	return docs
}

func planText(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n\nFeatures:\n", p.Name, p.Price)
	writeBullets(&b, p.Features)
	if len(p.Limitations) > 0 {
		b.WriteString("\nLimitations:\n")
		writeBullets(&b, p.Limitations)
	}
	if p.RecommendedFor != "" {
		fmt.Fprintf(&b, "\nRecommended for: %s", p.RecommendedFor)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeBullets(b *strings.Builder, items []string) {
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
}

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "does": {}, "from": {}, "have": {}, "that": {}, "there": {},
	"this": {}, "what": {}, "when": {}, "which": {}, "with": {}, "your": {}, "would": {},
	"could": {}, "should": {}, "tell": {}, "more": {}, "please": {}, "autostream": {},
	"plan": {}, "plans": {}, "know": {}, "want": {}, "like": {}, "some": {}, "they": {},
	"policy": {}, "policies": {}, "much": {}, "cost": {}, "price": {}, "pricing": {},
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func wordSet(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range words(text) {
		out[w] = struct{}{}
	}
	return out
}

// keywordSet keeps content words of four or more letters, stemmed by a trailing "s".
func keywordSet(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range words(text) {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[strings.TrimSuffix(w, "s")] = struct{}{}
	}
	return out
}

// overlaps matches whole keywords, or prefixes of at least five letters so that
// "cancel" finds "cancellation".
func overlaps(keywords map[string]struct{}, text string) bool {
	for w := range keywordSet(text) {
		if _, ok := keywords[w]; ok {
			return true
		}
		for k := range keywords {
			if len(k) >= 5 && len(w) >= 5 && (strings.HasPrefix(w, k) || strings.HasPrefix(k, w)) {
				return true
			}
		}
	}
	return false
}
