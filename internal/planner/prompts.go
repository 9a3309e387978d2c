package planner

import (
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

const plannerSystemPrompt = `You are a B2B sales research strategist. You plan how to find people
who are actively looking for a product like the one described. Always answer with JSON only:
no explanation, no markdown, no extra text.`

func initialStrategyPrompt(product string, target int, icp string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a lead search for this product. We need %d qualified leads.\n\n", target)
	fmt.Fprintf(&b, "**Product**: %s\n", product)
	if icp != "" {
		fmt.Fprintf(&b, "**Ideal customer profile**: %s\n", icp)
	}
	b.WriteString(`
Return a JSON object with exactly these fields:
{
  "product_category": "short category label",
  "target_titles": ["job titles of likely buyers, most likely first"],
  "community_queries": ["3-5 free-text searches people with this problem would post"],
  "news_focus": "one industry keyword or phrase for funding news",
  "competitors": ["3-5 competing products or companies"]
}

Queries must read like real forum posts ("best alternative to X", "how do you handle Y"),
not keyword soup. Leave a field empty if the product genuinely has no fit for it.`)
	return b.String()
}

func compensationPrompt(usage models.ResourceUsage, history []models.CompensationRound) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A lead search is below target: %d of %d leads found (%d short).\n\n",
		usage.LeadCount, usage.Target, usage.Shortfall())

	fmt.Fprintf(&b, "Resources already consumed:\n")
	fmt.Fprintf(&b, "- news pages fetched: %v\n", usage.NewsPagesFetched)
	fmt.Fprintf(&b, "- community queries used: %d\n", len(usage.QueriesUsed))
	fmt.Fprintf(&b, "- competitors scraped: %d\n", len(usage.CompetitorsScraped))

	if len(history) > 0 {
		b.WriteString("\nPrior compensation rounds:\n")
		for _, h := range history {
			outcome := "failed"
			if h.Success {
				outcome = fmt.Sprintf("%d new leads", h.NewLeads)
			}
			fmt.Fprintf(&b, "- round %d: %s -> %s\n", h.Round, h.Tag, outcome)
		}
	}

	b.WriteString(`
Which sources are worth another pass? Choose from "news", "competitor", "community".
Prefer news over competitor over community when in doubt; sources that
produced nothing in prior rounds are rarely worth repeating.

Return a JSON array of the chosen tags, e.g. ["news", "community"].
Return [] if no source is likely to close the gap.`)
	return b.String()
}

func moreCompetitorsPrompt(product string, exclude []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "List 3-5 additional competitors for this product.\n\n**Product**: %s\n", product)
	if len(exclude) > 0 {
		fmt.Fprintf(&b, "\nAlready covered, do NOT repeat these:\n- %s\n", strings.Join(exclude, "\n- "))
	}
	b.WriteString("\nReturn a JSON array of company or product names, e.g. [\"Acme CRM\", \"PipeTool\"].\nReturn [] if there are no more meaningful competitors.")
	return b.String()
}

func moreQueriesPrompt(product string, exclude []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write 3-5 additional community search queries for finding buyers of this product.\n\n**Product**: %s\n", product)
	if len(exclude) > 0 {
		fmt.Fprintf(&b, "\nAlready used, do NOT repeat these:\n- %s\n", strings.Join(exclude, "\n- "))
	}
	b.WriteString("\nQueries must read like real forum posts from someone with the problem.\nReturn a JSON array of query strings. Return [] if the space is exhausted.")
	return b.String()
}
