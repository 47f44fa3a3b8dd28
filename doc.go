// Package culturai recommends cultural events from a free-text French query.
//
// A query is read into an intent (city, genres, budget and a rewrite suited to
// similarity search), turned into hard filters, and the eligible events are
// ranked by embedding distance. A first pass reports its quality; when it is
// mediocre or empty the caller may run one refined or profile-enriched pass.
//
//	client, _ := culturai.New(
//	    culturai.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	    culturai.WithIndexDir("data/index"),
//	)
//	defer client.Close()
//
//	_, _ = client.IngestFile(ctx, "events.json")
//	out, _ := client.Recommend(ctx, "un concert de jazz a Lyon pour moins de 30 euros", nil)
//	if out.CanEscalate() {
//	    out, _ = client.Refine(ctx, out.Intent.RawQuery, "plutot ce week-end", nil)
//	}
//	text, _ := client.Generate(ctx, out, nil)
package culturai
