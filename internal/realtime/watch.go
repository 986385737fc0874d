package realtime

import (
	"context"
	"fmt"
)

// Watch подписка "живой запрос": при подписке и после каждого события в топике
// заново загружает данные и отдаёт снимок в onSnapshot.
func Watch[T any](
	ctx context.Context,
	b *Broker,
	topic string,
	load func(context.Context) (T, error),
	onSnapshot func(T),
	onError func(error),
) *Subscription {
	sub := b.Subscribe(ctx, topic, func([]Event) {
		snapshot, err := load(ctx)
		if err != nil {
			if onError != nil && ctx.Err() == nil {
				onError(err)
			}
			return
		}
		onSnapshot(snapshot)
	})

	sub.Notify(Event{Type: EventSnapshot})

	return sub
}

func ConversationsTopic(userID string) string {
	return fmt.Sprintf("conversations:%s", userID)
}

func MessagesTopic(conversationID string) string {
	return fmt.Sprintf("messages:%s", conversationID)
}

func MatchingsTopic(userID string) string {
	return fmt.Sprintf("matchings:%s", userID)
}

func BookingsTopic(userID string) string {
	return fmt.Sprintf("bookings:%s", userID)
}

func FollowupsTopic(userID string) string {
	return fmt.Sprintf("followups:%s", userID)
}
