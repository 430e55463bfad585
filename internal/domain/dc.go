package domain

const defaultDC = 4

// DetectDC угадывает дата-центр по старшим битам id
func DetectDC(id int64) int {
	dc := int((id >> 28) & 0xF)
	if dc == 0 {
		return defaultDC
	}
	return dc
}
