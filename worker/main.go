package main

import (
	"context"
	"fmt"
	"log"
	"syscall/js"
)

func main() {
	js.Global().Set("goFetch", js.FuncOf(goFetch))
	log.Println("INFO: unlockr worker ready")
	select {}
}

// goFetch is the Workers fetch entry point: goFetch(request, env, ctx)
// returns a Promise resolving to a Response.
func goFetch(_ js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.Global().Get("Promise").Call("reject", js.ValueOf("goFetch expects (request, env, ctx)"))
	}
	request, env := args[0], args[1]

	return js.Global().Get("Promise").New(js.FuncOf(func(_ js.Value, p []js.Value) interface{} {
		resolve, reject := p[0], p[1]

		go func() {
			ctx, cancel := requestContext(request)
			defer cancel()

			defer func() {
				if r := recover(); r != nil {
					reject.Invoke(js.ValueOf(fmt.Sprintf("panic: %v", r)))
				}
			}()

			response, err := route(ctx, request, env)
			if err != nil {
				reject.Invoke(js.ValueOf(err.Error()))
				return
			}
			resolve.Invoke(response)
		}()

		return nil
	}))
}

// requestContext is cancelled when the client aborts the inbound request,
// so outbound fetches for it stop as well.
func requestContext(request js.Value) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signal := request.Get("signal")
	if signal.IsUndefined() || signal.IsNull() {
		return ctx, cancel
	}

	onAbort := js.FuncOf(func(js.Value, []js.Value) interface{} {
		cancel()
		return nil
	})
	signal.Call("addEventListener", "abort", onAbort)

	return ctx, func() {
		signal.Call("removeEventListener", "abort", onAbort)
		onAbort.Release()
		cancel()
	}
}

func route(ctx context.Context, request, env js.Value) (js.Value, error) {
	urlObj := js.Global().Get("URL").New(request.Get("url").String())
	query := urlObj.Get("searchParams")

	switch urlObj.Get("pathname").String() {
	case "/view":
		return viewHandler(ctx, query, env)
	case "/ocr":
		return ocrHandler(ctx, query, env)
	case "/ruleset":
		return rulesetHandler(env)
	}

	// Everything else is a static asset, the landing form included.
	assets := env.Get("ASSETS")
	if assets.IsUndefined() {
		return createResponse(404, "text/plain", "Not Found"), nil
	}
	return assets.Call("fetch", request), nil
}
