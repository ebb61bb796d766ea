// Package repository define las entidades de dominio y los contratos de
// almacenamiento, independientes del driver.
//
//	┌──────────────────────────────────────────────┐
//	│  tenant / principal / tokens (componentes)   │
//	└──────────────────────────────────────────────┘
//	                     │
//	                     ▼
//	┌──────────────────────────────────────────────┐
//	│  domain/repository (interfaces)              │
//	└──────────────────────────────────────────────┘
//	            │                   │
//	            ▼                   ▼
//	     adapters/pg         adapters/memory
//
// Convenciones:
//   - context.Context siempre es el primer parámetro
//   - los errores de dominio viven en errors.go y se comparan con errors.Is
//   - las consultas sobre principals excluyen filas con DeletedAt != nil
package repository
