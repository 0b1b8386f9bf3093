// Package formdex provides a Go client for the formdex legal-forms
// search service.
//
// The client wraps the service's HTTP/JSON API: semantic search over
// California Judicial Council forms, guidance-backed question answering,
// and crawl job management.
//
//	client := formdex.New("http://localhost:8080")
//	answer, _ := client.Ask(ctx, "How do I file for divorce?")
//	fmt.Println(answer.Guidance.Topic)
//
//	results, _ := client.Search(ctx, formdex.SearchRequest{
//	    Query: "restraining order against neighbor",
//	    Limit: 5,
//	})
//	for _, form := range results.Forms {
//	    fmt.Println(form.Code, form.Title)
//	}
package formdex
