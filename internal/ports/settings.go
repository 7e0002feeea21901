package ports

import "context"

// SettingsStore persiste la configuración de sesión por clave.
type SettingsStore interface {
	// Load decodifica el valor guardado bajo key en out. Devuelve false si no existe.
	Load(ctx context.Context, key string, out any) (bool, error)

	// Save guarda v bajo key, reemplazando el valor anterior.
	Save(ctx context.Context, key string, v any) error
}
