// Package notify shows pop-up notifications in the browser.
//
// Views never talk to the pop-up library directly. They hand a Popup to a
// Notifier, which the session turns into a "popup" message on the
// WebSocket. The browser script renders it with whatever dialog library
// the page loads:
//
//	ws.addEventListener("message", (e) => {
//	    const msg = JSON.parse(e.data);
//	    if (msg.type === "popup") {
//	        Swal.fire(msg.popup);
//	    }
//	});
//
// # Server-Side Usage
//
//	if err := client.DeleteListing(ctx, req); err != nil {
//	    n.Notify(notify.Error("Delete failed", err.Error()))
//	    return err
//	}
//	n.Notify(notify.Success("Deleted", "The listing was removed."))
//
// Successful optimistic writes stay silent; only flows that confirm their
// outcome with a dialog (deletes, profile saves) emit a success pop-up.
package notify
