package controllerimpl

// attachButtonsScript decorates every post action bar in the timeline region
// with a quick-reply control. Returns the number of controls added. Scoped to
// the timeline so controls never land on composer previews or nav chrome.
const attachButtonsScript = `(() => {
  const region = document.querySelector('[aria-label*="Timeline"], [data-testid="primaryColumn"]') || document;
  let added = 0;
  for (const article of region.querySelectorAll("article")) {
    const group = article.querySelector('[role="group"]');
    if (!group || group.querySelector(".xposter-reply-button")) continue;

    const button = document.createElement("button");
    button.className = "xposter-reply-button";
    button.type = "button";
    button.textContent = "Quick Reply";
    button.dataset.xposterLabel = "Quick Reply";
    button.dataset.xposterState = "idle";
    button.addEventListener("click", (ev) => {
      ev.preventDefault();
      ev.stopPropagation();
      __xp.emit({ event: "quickReplyClick", button: __xp.keep(button) });
    });

    group.appendChild(button);
    added++;
  }
  return added;
})()`

// setButtonStateScript moves an injected control between its visual states.
// Arguments: button ref, state ("idle", "loading", "error"). Returns whether
// the control still exists.
const setButtonStateScript = `(() => {
  const el = __xp.get(%s);
  if (!el) return false;
  const state = %s;
  el.dataset.xposterState = state;
  if (state === "loading") {
    el.disabled = true;
    el.textContent = "Generating...";
  } else if (state === "error") {
    el.disabled = false;
    el.textContent = "Error";
  } else {
    el.disabled = false;
    el.textContent = el.dataset.xposterLabel || "Quick Reply";
  }
  return true;
})()`
