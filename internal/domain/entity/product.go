package entity

// Product entidad externa: el catálogo es dueño de su ciclo de vida,
// este servicio solo consulta existencia/actividad y el nombre para listados.
type Product struct {
	ID     int
	Name   string
	Active bool
}
