package requestService

import (
	"context"

	"github.com/yraj/hireahelper/internal/models"
)

// Fanout helpers. Delivery is a cache-invalidation signal, not a message
// queue: failures are logged and swallowed because the persisted state is
// already authoritative and reachable through the read path.

// EmitRequestsToOwner pushes the owner's full current pending-request list
// to their inbox channel. A snapshot, not a delta, so clients reconcile by
// replacement.
func (rs *RequestService) EmitRequestsToOwner(ownerID int64) {
	if rs.Hub == nil || ownerID == 0 {
		return
	}

	requests, err := rs.ReceivedPending(context.Background(), ownerID)
	if err != nil {
		rs.Log.Warn("Skipping inbox fanout, pending list unavailable", "owner_id", ownerID, "error", err)
		return
	}
	if requests == nil {
		requests = []models.HelpRequest{}
	}

	rs.Hub.Publish(models.UserChannel(ownerID), models.Event{
		Event:   models.EventRequestsUpdate,
		Payload: models.InboxSnapshot{OwnerID: ownerID, Requests: requests},
	})
}

// EmitNotificationToRequester pushes a freshly created notification to the
// requester's inbox channel.
func (rs *RequestService) EmitNotificationToRequester(requesterID int64, notification models.Notification) {
	if rs.Hub == nil || requesterID == 0 {
		return
	}

	rs.Hub.Publish(models.UserChannel(requesterID), models.Event{
		Event:   models.EventNotificationUpdate,
		Payload: notification,
	})
}
