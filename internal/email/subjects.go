package email

const (
	subjectBookingConfirmationFmt = "Appointment confirmed for %s at %s"
	subjectAppointmentReminderFmt = "Reminder: your appointment on %s at %s"
	subjectFollowUp               = "Following up on your enquiry"
)
