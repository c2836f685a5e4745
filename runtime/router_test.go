package runtime

import (
	"chatroom/contract"
	"chatroom/domain"
	"chatroom/mocks"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomRouter_SubscribeAndResolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	req := require.New(t)

	router := NewRoomRouter()
	sink1 := mocks.NewMockEventSink(ctrl)
	sink2 := mocks.NewMockEventSink(ctrl)

	router.Bind("conn-1", sink1)
	router.Bind("conn-2", sink2)
	router.Subscribe("lobby", "conn-1")
	router.Subscribe("lobby", "conn-2")
	// conn-3 subscribed without a sink binding.
	router.Subscribe("lobby", "conn-3")

	req.ElementsMatch(
		[]domain.ConnID{"conn-1", "conn-2", "conn-3"},
		router.MembersOf("lobby"),
	)
	// Resolution skips the unbound member instead of failing.
	req.ElementsMatch([]contract.EventSink{sink1, sink2}, router.SinksFor("lobby"))

	resolved, ok := router.SinkOf("conn-1")
	req.True(ok)
	req.Same(sink1, resolved)
	_, ok = router.SinkOf("conn-3")
	req.False(ok)
}

func TestRoomRouter_UnsubscribeCleansEmptyRooms(t *testing.T) {
	req := require.New(t)
	router := NewRoomRouter()

	router.Subscribe("lobby", "conn-1")
	router.Unsubscribe("lobby", "conn-1")

	req.Empty(router.MembersOf("lobby"))
	req.Empty(router.SinksFor("lobby"))

	// Unknown room and unknown connection are tolerated.
	router.Unsubscribe("ghost-room", "conn-1")
	router.Unsubscribe("lobby", "conn-ghost")
}

func TestRoomRouter_UnsubscribeAllDropsEveryMembership(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	req := require.New(t)

	router := NewRoomRouter()
	sink := mocks.NewMockEventSink(ctrl)
	other := mocks.NewMockEventSink(ctrl)

	router.Bind("conn-1", sink)
	router.Bind("conn-2", other)
	router.Subscribe("lobby", "conn-1")
	router.Subscribe("lobby", "conn-2")
	router.Subscribe("side", "conn-1")

	router.UnsubscribeAll("conn-1")

	req.ElementsMatch([]domain.ConnID{"conn-2"}, router.MembersOf("lobby"))
	req.Empty(router.MembersOf("side"))
	_, ok := router.SinkOf("conn-1")
	req.False(ok)

	// The surviving connection keeps its binding.
	resolved, ok := router.SinkOf("conn-2")
	req.True(ok)
	req.Same(other, resolved)
}
