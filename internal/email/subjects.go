package email

const (
	subjectFollowUpDueFmt          = "Relance à faire : %s"
	subjectLeadSignedFmt           = "Contrat signé : %s"
	subjectPlacementRemediationFmt = "Test de positionnement insuffisant : %s"
	subjectComplianceBillableFmt   = "Dossier facturable : %s"
)
