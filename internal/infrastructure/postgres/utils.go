package postgres

// nullIfEmpty convierte "" en NULL para columnas de texto opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// deref devuelve "" para punteros nil de columnas de texto opcionales.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
