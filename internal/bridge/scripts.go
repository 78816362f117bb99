package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CSSElementID is the id of the style element holding the user stylesheet
const CSSElementID = "soniditos-custom-css"

// quote renders s as a JavaScript string literal
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// EvalScript wraps expr so its (awaited) value is emitted back as ResultEvent.
func EvalScript(id, expr string) string {
	return fmt.Sprintf(`(async () => {
  const emit = (value, error) => window.runtime.EventsEmit(%s, %s, value === undefined ? null : value, error);
  try {
    emit(await (%s), "");
  } catch (err) {
    emit(null, String((err && err.message) || err));
  }
})();`, quote(ResultEvent), quote(id), expr)
}

// MediaField reads one field of the media session metadata.
func MediaField(field string) string {
	return fmt.Sprintf("navigator.mediaSession.metadata?.%s || null", field)
}

// ArtworkSource reads the first artwork URL of the media session metadata.
func ArtworkSource() string {
	return "navigator.mediaSession.metadata?.artwork?.[0]?.src || null"
}

// LocalStorageItem reads a key from the page's localStorage.
func LocalStorageItem(key string) string {
	return fmt.Sprintf("localStorage.getItem(%s)", quote(key))
}

// TextContent reads the text of the first element matching selector.
func TextContent(selector string) string {
	return fmt.Sprintf("document.querySelector(%s)?.textContent", quote(selector))
}

// GuardMarker is the window property that records an installed guard
const GuardMarker = "__soniditosGuard"

// hostMessages are the Wails IPC messages the runtime itself sends while a
// page loads, resizes or is dragged.
var hostMessages = []string{"DomReady", "runtime:ready", "drag"}

// GuardScript hides the Wails IPC from the page. The native postMessage
// channels, window.WailsInvoke and window.runtime are replaced with stand-ins
// that forward only the host messages and emits of the named events. Real
// functions assigned later by the Wails runtime are captured, never exposed.
func GuardScript(allowed ...string) string {
	names, _ := json.Marshal(allowed)
	system, _ := json.Marshal(hostMessages)
	return fmt.Sprintf(`(() => {
  if (Object.getOwnPropertyDescriptor(window, %[1]s)) { return; }
  Object.defineProperty(window, %[1]s, { value: true });
  const events = new Set(%[2]s);
  const system = new Set(%[3]s);
  const permitted = (message) => {
    if (typeof message !== "string") { return false; }
    if (system.has(message) || message.startsWith("resize:") || message.startsWith("systemevent:")) { return true; }
    if (!message.startsWith("EE")) { return false; }
    try { return events.has(JSON.parse(message.slice(2)).name); } catch (err) { return false; }
  };
  const seal = (channel) => {
    if (!channel || typeof channel.postMessage !== "function") { return; }
    const post = channel.postMessage.bind(channel);
    const guarded = (message) => { if (permitted(message)) { post(message); } };
    for (const owner of [channel, Object.getPrototypeOf(channel)]) {
      if (!owner || owner === Object.prototype) { continue; }
      try { Object.defineProperty(owner, "postMessage", { value: guarded }); } catch (err) {}
    }
  };
  seal(window.chrome && window.chrome.webview);
  seal(window.webkit && window.webkit.messageHandlers && window.webkit.messageHandlers.external);

  let invoke = typeof window.WailsInvoke === "function" ? window.WailsInvoke : null;
  const wailsInvoke = (message) => { if (invoke && permitted(message)) { invoke(message); } };
  const runtime = Object.freeze({
    EventsEmit: (name, ...data) => wailsInvoke("EE" + JSON.stringify({ name, data })),
  });
  Object.defineProperty(window, "WailsInvoke", {
    get: () => wailsInvoke,
    set: (fn) => { if (!invoke && typeof fn === "function") { invoke = fn; } },
  });
  Object.defineProperty(window, "runtime", { get: () => runtime, set: () => {} });
})();`, quote(GuardMarker), names, system)
}

// InstallScript guards the Wails IPC and exposes the page API:
// window.electronAPI with the three window-control signals and
// window.mediaAPI with the metadata channel. It is safe to run more than once.
func InstallScript(closeEvent, minimizeEvent, maximizeEvent, metadataEvent string) string {
	guard := GuardScript(closeEvent, minimizeEvent, maximizeEvent, metadataEvent, ResultEvent)
	return guard + "\n" + fmt.Sprintf(`(() => {
  const emit = (name, ...data) => window.runtime && window.runtime.EventsEmit(name, ...data);
  const expose = (name, api) => {
    if (Object.getOwnPropertyDescriptor(window, name)) { return; }
    Object.defineProperty(window, name, { value: Object.freeze(api), enumerable: true });
  };
  expose("electronAPI", {
    closeWindow: () => emit(%s),
    minimizeWindow: () => emit(%s),
    maximizeWindow: () => emit(%s),
  });
  expose("mediaAPI", {
    sendMediaMetadata: (metadata) => emit(%s, metadata),
  });
})();`, quote(closeEvent), quote(minimizeEvent), quote(maximizeEvent), quote(metadataEvent))
}

// ZoomScript forces the CSS zoom of the page to factor. It does not touch the
// webview zoom, which Wails only sets at window creation.
func ZoomScript(factor float64) string {
	return fmt.Sprintf("document.documentElement.style.zoom = %s;",
		quote(strconv.FormatFloat(factor, 'f', -1, 64)))
}

// CSSScript inserts or replaces the user stylesheet. An empty css removes it.
func CSSScript(css string) string {
	return fmt.Sprintf(`(() => {
  let style = document.getElementById(%s);
  const css = %s;
  if (!css) { if (style) { style.remove(); } return; }
  if (!style) {
    style = document.createElement("style");
    style.id = %s;
    document.head.appendChild(style);
  }
  style.textContent = css;
})();`, quote(CSSElementID), quote(css), quote(CSSElementID))
}
