package services

import (
	"beautyhub-backend/models"
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"
)

// Appointment events are named after their destination status.
var appointmentEvents = loopfsm.Events{
	{Name: string(models.AppointmentAccepted), Src: []string{string(models.AppointmentPending)}, Dst: string(models.AppointmentAccepted)},
	{Name: string(models.AppointmentDone), Src: []string{string(models.AppointmentAccepted)}, Dst: string(models.AppointmentDone)},
	{Name: string(models.AppointmentIgnored), Src: []string{string(models.AppointmentPending)}, Dst: string(models.AppointmentIgnored)},
	{
		Name: string(models.AppointmentCancelled),
		Src: []string{
			string(models.AppointmentPending),
			string(models.AppointmentAccepted),
			string(models.AppointmentIgnored),
			string(models.AppointmentDone),
		},
		Dst: string(models.AppointmentCancelled),
	},
}

const (
	paymentEventPrepare  = "prepare"
	paymentEventComplete = "complete"
	paymentEventFail     = "fail"
	paymentEventError    = "error"
)

// A payment left in error after a provider timeout may still be prepared or
// completed by the callback.
var paymentEvents = loopfsm.Events{
	{Name: paymentEventPrepare, Src: []string{string(models.PaymentCreated), string(models.PaymentError)}, Dst: string(models.PaymentPending)},
	{
		Name: paymentEventComplete,
		Src:  []string{string(models.PaymentCreated), string(models.PaymentPending), string(models.PaymentError)},
		Dst:  string(models.PaymentCompleted),
	},
	{
		Name: paymentEventFail,
		Src:  []string{string(models.PaymentCreated), string(models.PaymentPending), string(models.PaymentError)},
		Dst:  string(models.PaymentFailed),
	},
	{Name: paymentEventError, Src: []string{string(models.PaymentCreated), string(models.PaymentPending)}, Dst: string(models.PaymentError)},
}

// ErrInvalidTransition is returned when an event is not allowed from the
// current state.
var ErrInvalidTransition = errors.New("invalid status transition")

// applyEvent runs event on a short-lived machine started at current and
// returns the destination state.
func applyEvent(ctx context.Context, events loopfsm.Events, current, event string) (string, error) {
	machine := loopfsm.NewFSM(current, events, nil)
	if err := machine.Event(ctx, event); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", ErrInvalidTransition
		}
		return "", err
	}
	return machine.Current(), nil
}

func nextAppointmentStatus(ctx context.Context, current, target models.AppointmentStatus) (models.AppointmentStatus, error) {
	dst, err := applyEvent(ctx, appointmentEvents, string(current), string(target))
	return models.AppointmentStatus(dst), err
}

func nextPaymentStatus(ctx context.Context, current models.PaymentStatus, event string) (models.PaymentStatus, error) {
	dst, err := applyEvent(ctx, paymentEvents, string(current), event)
	return models.PaymentStatus(dst), err
}

// applyAppointmentFlags keeps the boolean mirrors in step with Status.
func applyAppointmentFlags(a *models.Appointment) {
	switch a.Status {
	case models.AppointmentAccepted:
		a.IsConfirmed = true
	case models.AppointmentDone:
		a.IsConfirmed = true
		a.IsCompleted = true
	case models.AppointmentCancelled:
		a.IsCancelled = true
	}
}
