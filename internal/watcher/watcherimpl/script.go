package watcherimpl

// installObserverScript watches the timeline region for added nodes and
// reports batches through the binding. Reinstalling replaces any previous
// observer so navigation never leaves a stale one running.
const installObserverScript = `(() => {
  if (window.__xpObserver) window.__xpObserver.disconnect();

  const target = document.querySelector('[aria-label*="Timeline"], [data-testid="primaryColumn"]') || document.body;
  const observer = new MutationObserver((records) => {
    let added = 0;
    for (const record of records) added += record.addedNodes.length;
    if (added > 0) __xp.emit({ event: "mutations", added });
  });
  observer.observe(target, { childList: true, subtree: true });
  window.__xpObserver = observer;
  return true;
})()`
