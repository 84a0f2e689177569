package browser

// NavigateMessageType is the only message type the bridge accepts.
const NavigateMessageType = "NEBULA_NAVIGATE"

// interceptionScript runs inside proxied documents. It captures link clicks
// before page handlers see them and hands the resolved URL to the parent
// frame instead of letting the sandbox navigate itself. Clicks on fragment
// links within the current document keep their default behaviour.
//
// It must never contain a closing script tag.
const interceptionScript = `(function () {
  if (window.__nebulaBridge) { return; }
  window.__nebulaBridge = true;
  function strip(u) {
    var i = String(u).indexOf('#');
    return i < 0 ? String(u) : String(u).slice(0, i);
  }
  document.addEventListener('click', function (e) {
    var t = e.target;
    var link = t && t.closest ? t.closest('a') : null;
    if (!link || !link.href) { return; }
    var here = document.baseURI || window.location.href;
    if (link.hash && strip(link.href) === strip(here)) { return; }
    e.preventDefault();
    window.parent.postMessage({ type: '` + NavigateMessageType + `', url: link.href }, '*');
  }, true);
})();`

// InterceptionScript returns the click interception script source.
func InterceptionScript() string {
	return interceptionScript
}
