// Package pagetl translates web pages through an AI service, one batch per
// page, and keeps the results in a URL-addressed cache so that revisiting a
// page, or a page whose URL is nearly the same, costs no service call.
//
// A page is reduced to ordered fragments, encoded as a single batch record
// (an `id,text` header followed by `id,"text"` lines), sent to the provider
// and the answer is written back by id. Successful answers are stored keyed
// by the page's normalized URL.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/pagetl"
//	    "github.com/ZaguanLabs/pagetl/cache"
//	    "github.com/ZaguanLabs/pagetl/processor"
//	    "github.com/ZaguanLabs/pagetl/provider"
//	)
//
//	func main() {
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    path, err := cache.DefaultSQLitePath()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    kv, err := cache.OpenSQLiteKV(path)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer kv.Close()
//
//	    pipeline := pagetl.NewPipeline(p,
//	        pagetl.WithTargetLang("zh_CN"),
//	        pagetl.WithCache(cache.NewStore(kv)),
//	    )
//
//	    doc, err := processor.NewHTMLDocument("<p>Hello World</p>")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    result := pipeline.Run(context.Background(), "https://example.com/", doc)
//	    if !result.OK() {
//	        log.Fatal(result.Err)
//	    }
//	    body, _ := doc.RenderBody()
//	    fmt.Println(body) // <p>你好，世界</p>
//	}
package pagetl
