package hardware

import (
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"lifty/internal/clock"
	"lifty/internal/wire"
)

var _ = Describe("Car timer scheduling", func() {
	var (
		ctrl      *gomock.Controller
		mockClock *clock.MockClock
		car       *Car
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		mockClock = clock.NewMockClock(ctrl)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		car = New(mockClock, logger, func(clock.Channel) {})
	})

	It("schedules a floor timer for TFloor when MU is applied", func() {
		mockClock.EXPECT().Cancel(clock.ChannelMotor).Times(1)
		mockClock.EXPECT().Cancel(clock.ChannelDoor).Times(1)
		mockClock.EXPECT().Schedule(clock.ChannelMotor, TFloor, gomock.Any()).Times(1)

		car.Apply(wire.Command{Kind: wire.CmdReset})
		car.Apply(wire.Command{Kind: wire.CmdMoveUp})

		Expect(car.Snapshot().Motor).To(Equal(MotorUp))
	})

	It("schedules a door-open timer for TOpen when DO is applied", func() {
		mockClock.EXPECT().Cancel(clock.ChannelMotor).Times(1)
		mockClock.EXPECT().Cancel(clock.ChannelDoor).Times(1)
		mockClock.EXPECT().Schedule(clock.ChannelDoor, TOpen, gomock.Any()).Times(1)

		car.Apply(wire.Command{Kind: wire.CmdReset})
		car.Apply(wire.Command{Kind: wire.CmdDoorOpen})

		Expect(car.Snapshot().Door).To(Equal(DoorOpening))
	})

	It("cancels both channels on reset, even with nothing pending", func() {
		mockClock.EXPECT().Cancel(clock.ChannelMotor).Times(1)
		mockClock.EXPECT().Cancel(clock.ChannelDoor).Times(1)

		car.Apply(wire.Command{Kind: wire.CmdReset})
	})

	It("never schedules a timer for a command that crashes instead", func() {
		mockClock.EXPECT().Cancel(clock.ChannelMotor).AnyTimes()
		mockClock.EXPECT().Cancel(clock.ChannelDoor).AnyTimes()
		mockClock.EXPECT().Schedule(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		car.Apply(wire.Command{Kind: wire.CmdReset})
		car.Apply(wire.Command{Kind: wire.CmdStop}) // idle -> crash, per §4.2.2

		Expect(car.Snapshot().Crashed).To(BeTrue())
	})
})
