package validation

// ValidateCompany проверяет поля формы компании
func ValidateCompany(hrName, email, companyName string) error {
	if err := ValidateName("hr name", hrName); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidateName("company name", companyName)
}
