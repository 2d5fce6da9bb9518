// Package searchbridge embeds the rule-based Elasticsearch search pipeline in a
// Go program. Hits are reconciled with records read from Redis or Postgres.
//
// # Low-level API
//
//	client, _ := searchbridge.New(ctx,
//	    searchbridge.WithElasticsearch("http://localhost:9200"),
//	    searchbridge.WithRedis("localhost:6379", ""),
//	)
//	_ = client.Register(searchbridge.RecordType{
//	    Name:  "posts",
//	    Index: "posts_v1",
//	    Rules: []searchbridge.Rule{
//	        &searchbridge.QueryString{Fields: []string{"title^2", "body"}},
//	        &searchbridge.MultiMatch{Fields: []string{"title"}, Fuzziness: "AUTO"},
//	    },
//	    Scopes: []searchbridge.Scope{
//	        searchbridge.FilterScope("published", searchbridge.Must, "status", "published"),
//	    },
//	})
//	c, _ := client.Query("posts").Query("golang").Scope("published").Build()
//	res, _ := client.Get(ctx, c)
//
// # Typed API
//
//	type Post struct {
//	    ID    string `searchbridge:"id,key"`
//	    Title string `searchbridge:"title"`
//	    Views int    `searchbridge:"views"`
//	}
//
//	hits, total, _ := searchbridge.Find[Post](ctx, client, c)
package searchbridge
