package knowledge

import (
	"fmt"
	"strings"
)

// PricingAnswer lists every plan with its price and features. When focus names a
// plan, that plan is described first and the other plans are still quoted by price.
func (kb *KnowledgeBase) PricingAnswer(focus string) string {
	var b strings.Builder

	if plan, ok := kb.PlanByName(focus); ok {
		fmt.Fprintf(&b, "The %s costs %s and includes:\n", plan.Name, plan.Price)
		writeBullets(&b, plan.Features)
		if plan.RecommendedFor != "" {
			fmt.Fprintf(&b, "Recommended for: %s\n", plan.RecommendedFor)
		}
		kb.writeComparison(&b, plan)
		b.WriteString("\nWould you like to get started or hear more about what's included?")
		return b.String()
	}

	fmt.Fprintf(&b, "%s offers %d plans:\n", kb.Company, len(kb.PricingPlans))
	for _, p := range kb.PricingPlans {
		fmt.Fprintf(&b, "\n%s: %s\n", p.Name, p.Price)
		writeBullets(&b, p.Features)
	}
	b.WriteString("\nWould you like more details about either plan?")
	return b.String()
}

// DetailsAnswer is the "tell me more" answer: full plan descriptions plus the
// policies and FAQ entries relevant to text, or all of them when none match.
// A focused answer still quotes the other plans' prices.
func (kb *KnowledgeBase) DetailsAnswer(focus, text string) string {
	var b strings.Builder

	plans := kb.PricingPlans
	focused, isFocused := kb.PlanByName(focus)
	if isFocused {
		plans = []Plan{focused}
	} else {
		fmt.Fprintf(&b, "%s\n\n", kb.Description)
	}
	for _, p := range plans {
		b.WriteString(planText(p))
		b.WriteString("\n\n")
	}

	policies, faqs := kb.Lookup(text)
	if len(policies) == 0 && len(faqs) == 0 {
		policies, faqs = kb.Policies, kb.FAQ
	}
	writeReference(&b, policies, faqs)
	if isFocused {
		kb.writeComparison(&b, focused)
	}

	return strings.TrimSpace(b.String())
}

// writeComparison quotes the price of every plan other than plan.
func (kb *KnowledgeBase) writeComparison(b *strings.Builder, plan Plan) {
	var others []string
	for _, p := range kb.PricingPlans {
		if p.Name != plan.Name {
			others = append(others, fmt.Sprintf("the %s is %s", p.Name, p.Price))
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(b, "\nFor comparison, %s.\n", strings.Join(others, " and "))
	}
}

// FallbackAnswer answers from the knowledge base alone when generation is not
// available. It never returns an empty string.
func (kb *KnowledgeBase) FallbackAnswer(text string) string {
	policies, faqs := kb.Lookup(text)
	if len(policies) > 0 || len(faqs) > 0 {
		var b strings.Builder
		b.WriteString("Here's what I can tell you:\n\n")
		writeReference(&b, policies, faqs)
		b.WriteString("\n\nAnything else you'd like to know?")
		return b.String()
	}

	var prices []string
	for _, p := range kb.PricingPlans {
		prices = append(prices, fmt.Sprintf("the %s (%s)", p.Name, p.Price))
	}
	return fmt.Sprintf(
		"I'm sorry, I don't have specific information about that. %s\n\nWe offer %s. Is there anything about our plans I can help you with?",
		kb.Description, strings.Join(prices, " and "),
	)
}

func writeReference(b *strings.Builder, policies []Policy, faqs []FAQ) {
	if len(policies) > 0 {
		b.WriteString("Good to know:\n")
		for _, p := range policies {
			fmt.Fprintf(b, "- %s: %s\n", p.Title, p.Description)
		}
	}
	if len(faqs) > 0 {
		if len(policies) > 0 {
			b.WriteString("\n")
		}
		b.WriteString("FAQ:\n")
		for _, f := range faqs {
			fmt.Fprintf(b, "- %s %s\n", f.Question, f.Answer)
		}
	}
}
