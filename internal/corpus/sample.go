package corpus

// SampleDocuments returns the built-in seed corpus used when no source
// files can be loaded. It covers the two topics users ask about most, so
// the assistant stays useful out of the box.
func SampleDocuments() []Document {
	return []Document{
		{
			Source: "eligibility_guidelines.pdf",
			Page:   1,
			Content: `NELFUND Eligibility Criteria

To be eligible for a NELFUND student loan, applicants must meet the following requirements:

1. The applicant must be a Nigerian citizen enrolled in a public tertiary institution (university, polytechnic, or college of education).
2. The applicant's family income must be below 500,000 Naira per annum.
3. The applicant must provide a guarantor who is a civil servant of at least level 12, a lawyer with at least 10 years post-call experience, a judicial officer, or a justice of peace.
4. There is no age limit for applicants.
5. Applicants who have previously defaulted on any student loan are not eligible.
6. Applicants must not have been found guilty of exam malpractice, felony, or drug offenses.`,
		},
		{
			Source: "application_procedure.pdf",
			Page:   2,
			Content: `NELFUND Application Process

How to apply for a NELFUND student loan:

1. Register on the official NELFUND portal using your JAMB registration number and personal details.
2. Verify your identity with your NIN (National Identification Number) and BVN.
3. Submit your admission letter, student ID, and guarantor documents through the portal.
4. Applications are reviewed and verified with your institution, which typically takes 4 to 6 weeks.
5. Approved tuition loans are disbursed directly to your institution, while upkeep allowances are paid monthly to your personal account.
6. Repayment begins two years after completion of the NYSC programme, deducted as 10 percent of monthly salary.`,
		},
	}
}
