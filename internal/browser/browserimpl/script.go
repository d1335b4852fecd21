package browserimpl

// helperRuntime is installed into every new document. It keeps a registry of
// element references so Go-side code can address nodes across evaluations,
// plus the visibility predicate shared by all locator queries. Everything
// concern-specific (composer driving, button creation, mutation observing)
// lives with its own package and is evaluated against this runtime.
const helperRuntime = `(() => {
  if (window.__xp) return;

  const refs = new Map();
  let next = 1;

  const keep = (el) => {
    if (!el) return null;
    for (const [id, kept] of refs) {
      if (kept === el) return id;
    }
    const id = "r" + next++;
    refs.set(id, el);
    return id;
  };

  const get = (id) => {
    const el = refs.get(id);
    return el && el.isConnected ? el : null;
  };

  const rootOf = (id) => (id ? get(id) : document);

  const visible = (el) => {
    if (!el) return false;
    const style = window.getComputedStyle(el);
    if (style.display === "none" || style.visibility === "hidden") return false;
    return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
  };

  const emit = (payload) => {
    if (window.__xposterEmit) window.__xposterEmit(JSON.stringify(payload));
  };

  window.__xp = {
    keep,
    get,
    visible,
    emit,
    find(rootId, selector, mustBeVisible) {
      const root = rootOf(rootId);
      if (!root) return null;
      for (const el of root.querySelectorAll(selector)) {
        if (!mustBeVisible || visible(el)) return keep(el);
      }
      return null;
    },
    closest(id, selector) {
      const el = get(id);
      if (!el) return null;
      return keep(el.closest(selector));
    },
    attached(id) {
      return !!get(id);
    },
    outerHTML(id) {
      const el = get(id);
      return el ? el.outerHTML : null;
    },
    click(id) {
      const el = get(id);
      if (!el) return false;
      el.click();
      return true;
    },
  };
})();`
