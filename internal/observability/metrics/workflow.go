// Package metrics provides Prometheus instrumentation for bountyd.
package metrics

// SubmissionRegister records a submission registration.
func SubmissionRegister(status string) {
	if !enabled {
		return
	}
	submissionRegisterTotal.WithLabelValues(status).Inc()
}

// VerificationRecord records a verification decision.
func VerificationRecord(decision, status string) {
	if !enabled {
		return
	}
	verificationRecordTotal.WithLabelValues(decision, status).Inc()
}

// BountyDeposit records a pool funding operation.
func BountyDeposit(status string) {
	if !enabled {
		return
	}
	bountyDepositTotal.WithLabelValues(status).Inc()
}

// PayoutMark records a mark-claimable operation.
func PayoutMark(status string) {
	if !enabled {
		return
	}
	payoutMarkTotal.WithLabelValues(status).Inc()
}

// PayoutClaim records a claim operation.
func PayoutClaim(status string) {
	if !enabled {
		return
	}
	payoutClaimTotal.WithLabelValues(status).Inc()
}

// SettlementCall records a settlement ledger call.
func SettlementCall(operation, status string) {
	if !enabled {
		return
	}
	settlementCallTotal.WithLabelValues(operation, status).Inc()
}
