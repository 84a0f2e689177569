/*
Package sandbox runs the click interception script in an embedded
JavaScript engine (goja) against a simulated window and document.

The simulation covers what the script touches: document.addEventListener
in the capture phase, document.baseURI, window.location.href,
window.parent.postMessage, and Element.closest on the click target. Link
hrefs are resolved against the document base the way a browser resolves
HTMLAnchorElement.href.

Every run gets a fresh VM, so globals set by one run (such as the script's
load guard) never leak into the next.

	pool, _ := sandbox.NewPool(sandbox.DefaultConfig(), 2)
	res, err := pool.Click(ctx, script,
		sandbox.Page{URL: "https://example.org/", BaseURI: "https://example.org/"},
		sandbox.Anchor("/about"))
	// res.Messages[0].Data["url"] == "https://example.org/about"
*/
package sandbox
