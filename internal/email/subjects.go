package email

const (
	subjectLeadTransitionedFmt = "Lead %s moved to %s"
	subjectLeadAssignedFmt     = "Lead %s was assigned to you"
	subjectLeadReminderFmt     = "Reminder: lead %s needs attention"
)
