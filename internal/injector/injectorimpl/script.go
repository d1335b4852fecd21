package injectorimpl

// setContentScript pastes text into a contenteditable input. Arguments: input
// ref, text. Returns "paste", "fallback", or null when the input is gone.
const setContentScript = `(() => {
  const el = __xp.get(%s);
  if (!el) return null;
  const text = %s;
  el.focus();
  try {
    const dt = new DataTransfer();
    dt.setData("text/plain", text);
    el.dispatchEvent(new ClipboardEvent("paste", {
      clipboardData: dt,
      bubbles: true,
      cancelable: true,
    }));
    el.dispatchEvent(new Event("input", { bubbles: true }));
    el.dispatchEvent(new Event("change", { bubbles: true }));
    return "paste";
  } catch (e) {
    el.textContent = text;
    el.dispatchEvent(new Event("input", { bubbles: true }));
    return "fallback";
  }
})()`

// clearContentScript empties a contenteditable input, escalating through
// three deletion strategies. Arguments: input ref. Returns whether the input
// ended up empty.
const clearContentScript = `(() => {
  const el = __xp.get(%s);
  if (!el) return false;
  el.focus();

  const empty = () => (el.textContent || "").length === 0;

  const range = document.createRange();
  range.selectNodeContents(el);
  const selection = window.getSelection();
  selection.removeAllRanges();
  selection.addRange(range);
  document.execCommand("delete", false, null);

  if (!empty()) {
    selection.removeAllRanges();
    selection.addRange(range);
    selection.deleteFromDocument();
  }
  if (!empty()) {
    el.innerHTML = "";
  }

  el.dispatchEvent(new Event("input", { bubbles: true }));
  return empty();
})()`

// attachRegenerateScript adds the regenerate control to an open composer.
// Arguments: dialog ref, input ref, original post text. Returns true when the
// control is present after the call, null when the dialog is gone.
const attachRegenerateScript = `(() => {
  const dialog = __xp.get(%s);
  const input = __xp.get(%s);
  if (!dialog || !input) return null;
  if (dialog.querySelector(".xposter-regenerate-button")) return true;

  const text = %s;
  const button = document.createElement("button");
  button.className = "xposter-regenerate-button";
  button.type = "button";
  button.textContent = "Regenerate";
  button.dataset.xposterLabel = "Regenerate";
  button.dataset.xposterState = "idle";
  button.addEventListener("click", (ev) => {
    ev.preventDefault();
    ev.stopPropagation();
    __xp.emit({
      event: "regenerateClick",
      button: __xp.keep(button),
      dialog: __xp.keep(dialog),
      input: __xp.keep(input),
      text: text,
    });
  });

  const submit = dialog.querySelector('button[data-testid="tweetButton"]');
  if (submit && submit.parentNode) {
    submit.parentNode.insertBefore(button, submit);
  } else if (input.parentNode) {
    input.parentNode.insertBefore(button, input.nextSibling);
  } else {
    return false;
  }
  return true;
})()`
